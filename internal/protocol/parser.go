// Package protocol turns one line of the text protocol into a models.Command
// and renders values for responses. Nothing here performs I/O.
package protocol

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/shibudb.org/shibuvec/internal/models"
)

// ParseError describes a malformed or incomplete command line.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string {
	return e.Msg
}

func parseError(msg string) error {
	return &ParseError{Msg: msg}
}

// Parse tokenizes line on whitespace and builds the matching command. The
// command word is case-insensitive; keys are taken verbatim. Every failure is
// a *ParseError.
func Parse(line string) (models.Command, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil, parseError("Empty command")
	}
	args := tokens[1:]

	switch strings.ToLower(tokens[0]) {
	case "ping":
		return models.Ping{}, nil
	case "insert":
		if len(args) < 1 {
			return nil, parseError("Invalid INSERT command")
		}
		return models.Insert{Vector: parseValues(args)}, nil
	case "named_insert":
		if len(args) < 2 {
			return nil, parseError("Invalid NAMED_INSERT command")
		}
		return models.NamedInsert{Key: args[0], Vector: parseValues(args[1:])}, nil
	case "get":
		if len(args) != 1 {
			return nil, parseError("Invalid GET command")
		}
		return models.Get{Key: args[0]}, nil
	case "remove":
		if len(args) != 1 {
			return nil, parseError("Invalid REMOVE command")
		}
		return models.Remove{Key: args[0]}, nil
	case "knn":
		if len(args) < 1 {
			return nil, parseError("Missing key")
		}
		if len(args) < 2 {
			return nil, parseError("Missing k")
		}
		k, err := parseCount(args[1])
		if err != nil {
			return nil, parseError("Invalid k value")
		}
		return models.KNearestNeighbors{Key: args[0], K: k}, nil
	case "vadd":
		key1, key2, err := keyPair(args)
		if err != nil {
			return nil, err
		}
		return models.VectorAdd{Key1: key1, Key2: key2}, nil
	case "vsub":
		key1, key2, err := keyPair(args)
		if err != nil {
			return nil, err
		}
		return models.VectorSub{Key1: key1, Key2: key2}, nil
	case "vscale":
		if len(args) < 1 {
			return nil, parseError("Missing key")
		}
		if len(args) < 2 {
			return nil, parseError("Missing scalar")
		}
		scalar, ok := parseFloat(args[1])
		if !ok {
			return nil, parseError("Invalid scalar value")
		}
		return models.VectorScale{Key: args[0], Scalar: scalar}, nil
	case "vcosine":
		key1, key2, err := keyPair(args)
		if err != nil {
			return nil, err
		}
		return models.CosineSimilarity{Key1: key1, Key2: key2}, nil
	case "dump":
		if len(args) != 1 {
			return nil, parseError("Invalid DUMP command")
		}
		return models.Dump{Path: args[0]}, nil
	default:
		return nil, parseError("Unknown command")
	}
}

func keyPair(args []string) (string, string, error) {
	if len(args) < 1 {
		return "", "", parseError("Missing key1")
	}
	if len(args) < 2 {
		return "", "", parseError("Missing key2")
	}
	return args[0], args[1], nil
}

// parseValues keeps every token that parses as a float and silently drops
// the rest. Clients rely on this leniency.
func parseValues(tokens []string) []float32 {
	values := make([]float32, 0, len(tokens))
	for _, tok := range tokens {
		if v, ok := parseFloat(tok); ok {
			values = append(values, v)
		}
	}
	return values
}

// parseFloat accepts out-of-range literals, which saturate to ±Inf or zero.
func parseFloat(tok string) (float32, bool) {
	if isHexFloat(tok) {
		return 0, false
	}
	v, err := strconv.ParseFloat(tok, 32)
	if err != nil {
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) || numErr.Err != strconv.ErrRange {
			return 0, false
		}
	}
	return float32(v), true
}

// isHexFloat reports a 0x/0X mantissa, which strconv accepts but the
// protocol treats as not a number.
func isHexFloat(tok string) bool {
	if len(tok) > 0 && (tok[0] == '+' || tok[0] == '-') {
		tok = tok[1:]
	}
	return len(tok) >= 2 && tok[0] == '0' && (tok[1] == 'x' || tok[1] == 'X')
}

func parseCount(tok string) (int, error) {
	n, err := strconv.ParseUint(strings.TrimPrefix(tok, "+"), 10, 64)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt {
		return math.MaxInt, nil
	}
	return int(n), nil
}
