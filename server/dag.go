package server

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/parley/pkg/llm"
	"github.com/papercomputeco/parley/pkg/merkle"
)

// handleDAGStats returns statistics about the transcript DAG.
func (s *Server) handleDAGStats(c *fiber.Ctx) error {
	ctx := c.UserContext()

	nodes, err := s.storer.List(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list nodes"})
	}

	roots, err := s.storer.Roots(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get roots"})
	}

	leaves, err := s.storer.Leaves(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get leaves"})
	}

	return c.JSON(map[string]any{
		"total_nodes":     len(nodes),
		"root_count":      len(roots),
		"leaf_count":      len(leaves),
		"active_sessions": s.sessions.Len(),
	})
}

func (s *Server) handleGetNode(c *fiber.Ctx) error {
	node, err := s.storer.Get(c.UserContext(), c.Params("hash"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "node not found"})
	}
	return c.JSON(node)
}

// handleListHistories returns one transcript per leaf node.
func (s *Server) handleListHistories(c *fiber.Ctx) error {
	ctx := c.UserContext()

	leaves, err := s.storer.Leaves(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get leaves"})
	}

	histories := make([]HistoryResponse, 0, len(leaves))
	for _, leaf := range leaves {
		history, err := BuildHistory(ctx, s.storer, leaf.Hash)
		if err != nil {
			s.logger.Warn("failed to build history for leaf", zap.String("hash", leaf.Hash), zap.Error(err))
			continue
		}
		histories = append(histories, *history)
	}

	return c.JSON(map[string]any{
		"count":     len(histories),
		"histories": histories,
	})
}

func (s *Server) handleGetHistory(c *fiber.Ctx) error {
	hash := c.Params("hash")

	history, err := BuildHistory(c.UserContext(), s.storer, hash)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "node not found"})
	}

	return c.JSON(history)
}

// BuildHistory returns the transcript from the root down to hash.
func BuildHistory(ctx context.Context, storer merkle.Storer, hash string) (*HistoryResponse, error) {
	path, err := storer.Descendants(ctx, hash)
	if err != nil {
		return nil, err
	}

	messages := make([]HistoryMessage, len(path))
	for i, node := range path {
		messages[i] = HistoryMessage{
			Hash:       node.Hash,
			ParentHash: node.ParentHash,
			Role:       node.Content.Role,
			Content:    node.Content.Content,
			Backend:    node.Content.Backend,
			Model:      node.Content.Model,
		}
	}

	return &HistoryResponse{
		Messages: messages,
		HeadHash: hash,
		Depth:    len(messages),
	}, nil
}

// handlePutNodes stores transcript nodes pushed from another store. Nodes
// whose hash does not match their content are counted as errors.
func (s *Server) handlePutNodes(c *fiber.Ctx) error {
	var nodes []*merkle.Node
	if err := json.Unmarshal(c.Body(), &nodes); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	sink := merkle.StoreSink{
		Storer: s.storer,
		OnError: func(node *merkle.Node, err error) {
			hash := ""
			if node != nil {
				hash = node.Hash
			}
			s.logger.Warn("rejected node", zap.String("hash", hash), zap.Error(err))
		},
	}
	resp, err := sink.PutBatch(c.UserContext(), nodes)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	s.logger.Info("nodes received",
		zap.Int("new", resp.New),
		zap.Int("duplicate", resp.Duplicate),
		zap.Int("errors", resp.Errors),
	)
	return c.JSON(resp)
}
