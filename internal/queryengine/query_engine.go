package queryengine

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shibudb.org/shibuvec/internal/models"
	"github.com/shibudb.org/shibuvec/internal/protocol"
	"github.com/shibudb.org/shibuvec/internal/storage"
)

const (
	respPong            = "pong"
	respOK              = "OK"
	respNull            = "null"
	respKeyNotFound     = "Key not found"
	respKeysNotFound    = "One or both keys not found"
	respIncompatibleFmt = "Vectors are not compatible for %s"
)

type QueryEngine struct {
	engine storage.VectorEngine
	logger *slog.Logger
}

func NewQueryEngine(engine storage.VectorEngine, logger *slog.Logger) *QueryEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryEngine{
		engine: engine,
		logger: logger,
	}
}

// ExecuteLine parses one protocol line and returns the response block
// without its trailing newline.
func (qe *QueryEngine) ExecuteLine(line string) string {
	cmd, err := protocol.Parse(line)
	if err != nil {
		qe.logger.Debug("parse failed", "error", err)
		return "Error: " + err.Error()
	}
	return qe.Execute(cmd)
}

// Execute runs cmd against the engine and formats the result.
func (qe *QueryEngine) Execute(cmd models.Command) string {
	qe.logger.Debug("query", "command", cmd.Type())

	switch c := cmd.(type) {
	case models.Ping:
		return respPong
	case models.Insert:
		key := qe.engine.GenerateAndInsert(c.Vector)
		qe.logger.Debug("inserted", "key", key, "dim", len(c.Vector))
		return respOK
	case models.NamedInsert:
		qe.engine.Insert(c.Key, c.Vector)
		return respOK
	case models.Get:
		vec, ok := qe.engine.Get(c.Key)
		if !ok {
			return respNull
		}
		return protocol.FormatVector(vec)
	case models.Remove:
		qe.engine.Remove(c.Key)
		return respOK
	case models.KNearestNeighbors:
		neighbors, err := qe.engine.NearestToKey(c.Key, c.K)
		if err != nil {
			return respKeyNotFound
		}
		lines := make([]string, len(neighbors))
		for i, n := range neighbors {
			lines[i] = fmt.Sprintf("ID: %s, Vector: %s", n.Key, protocol.FormatVector(n.Vector))
		}
		return strings.Join(lines, "\n")
	case models.VectorAdd:
		vec, err := qe.engine.VectorAddition(c.Key1, c.Key2)
		return vectorResult(vec, err, "addition")
	case models.VectorSub:
		vec, err := qe.engine.VectorSubtraction(c.Key1, c.Key2)
		return vectorResult(vec, err, "subtraction")
	case models.VectorScale:
		vec, err := qe.engine.VectorScaling(c.Key, c.Scalar)
		if errors.Is(err, storage.ErrNotFound) {
			return respKeyNotFound
		}
		return vectorResult(vec, err, "scaling")
	case models.CosineSimilarity:
		sim, err := qe.engine.CosineSimilarity(c.Key1, c.Key2)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return respKeysNotFound
		case err != nil:
			return fmt.Sprintf(respIncompatibleFmt, "cosine similarity")
		}
		return "Cosine Similarity: " + protocol.FormatSimilarity(sim)
	case models.Dump:
		if err := qe.engine.ExportSnapshot(c.Path); err != nil {
			qe.logger.Warn("dump failed", "path", c.Path, "error", err)
			return "Error creating database dump: " + err.Error()
		}
		qe.logger.Info("dump written", "path", c.Path)
		return "Database dump successful: " + c.Path
	default:
		return "Error: Unknown command"
	}
}

func vectorResult(vec []float32, err error, op string) string {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return respKeysNotFound
	case err != nil:
		return fmt.Sprintf(respIncompatibleFmt, op)
	}
	return "Result: " + protocol.FormatVector(vec)
}
