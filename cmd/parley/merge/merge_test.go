package mergecmder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/pkg/llm"
	"github.com/papercomputeco/parley/pkg/merkle"
)

var _ = Describe("Merge Command", func() {
	var (
		ctx     context.Context
		tmpDir  string
		srcPath string
		dstPath string
	)

	BeforeEach(func() {
		ctx = context.Background()
		tmpDir = GinkgoT().TempDir()
		srcPath = filepath.Join(tmpDir, "source.db")
		dstPath = filepath.Join(tmpDir, "target.db")

		old := os.Getenv("HOME")
		os.Setenv("HOME", tmpDir)
		DeferCleanup(os.Setenv, "HOME", old)
	})

	makeNode := func(turn llm.Turn, parent *merkle.Node) *merkle.Node {
		return merkle.NewNode(merkle.TurnBucket(turn, "local", "test-model"), parent)
	}

	seed := func(path string, nodes ...*merkle.Node) {
		s, err := merkle.NewSQLiteStorer(path)
		Expect(err).NotTo(HaveOccurred())
		for _, n := range nodes {
			Expect(s.Put(ctx, n)).To(Succeed())
		}
		Expect(s.Close()).To(Succeed())
	}

	list := func(path string) []*merkle.Node {
		s, err := merkle.NewSQLiteStorer(path)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()
		nodes, err := s.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		return nodes
	}

	It("merges turns from source into target", func() {
		nodeA := makeNode(llm.UserTurn("hello from source"), nil)
		nodeB := makeNode(llm.AssistantTurn("hi back"), nodeA)
		seed(srcPath, nodeA, nodeB)
		seed(dstPath, makeNode(llm.UserTurn("already in target"), nil))

		var out bytes.Buffer
		cmd := NewMergeCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--sqlite", dstPath, srcPath})
		Expect(cmd.ExecuteContext(ctx)).To(Succeed())

		Expect(list(dstPath)).To(HaveLen(3))
		Expect(out.String()).To(ContainSubstring("1 transcripts, 2 new, 0 already existed"))
	})

	It("skips turns the target already has", func() {
		nodeA := makeNode(llm.UserTurn("shared"), nil)
		seed(srcPath, nodeA)
		seed(dstPath, nodeA)

		var out bytes.Buffer
		cmd := NewMergeCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--sqlite", dstPath, srcPath})
		Expect(cmd.ExecuteContext(ctx)).To(Succeed())

		Expect(list(dstPath)).To(HaveLen(1))
		Expect(out.String()).To(ContainSubstring("1 transcripts, 0 new, 1 already existed"))
	})

	It("merges several sources", func() {
		otherPath := filepath.Join(tmpDir, "other.db")
		seed(srcPath, makeNode(llm.UserTurn("from alice"), nil))
		seed(otherPath, makeNode(llm.UserTurn("from bob"), nil))

		cmd := NewMergeCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"--sqlite", dstPath, srcPath, otherPath})
		Expect(cmd.ExecuteContext(ctx)).To(Succeed())

		Expect(list(dstPath)).To(HaveLen(2))
	})

	It("copies branched transcripts with their shared turns once", func() {
		root := makeNode(llm.UserTurn("hi"), nil)
		left := makeNode(llm.AssistantTurn("hello"), root)
		right := makeNode(llm.AssistantTurn("hey"), root)
		seed(srcPath, root, left, right)

		var out bytes.Buffer
		cmd := NewMergeCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--sqlite", dstPath, srcPath})
		Expect(cmd.ExecuteContext(ctx)).To(Succeed())

		Expect(list(dstPath)).To(HaveLen(3))
		Expect(out.String()).To(ContainSubstring("2 transcripts, 3 new, 0 already existed"))
	})

	It("requires a target database", func() {
		seed(srcPath, makeNode(llm.UserTurn("orphan"), nil))

		cmd := NewMergeCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{srcPath})
		Expect(cmd.ExecuteContext(ctx)).To(HaveOccurred())
	})
})
