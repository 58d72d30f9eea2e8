package filter

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/rzbill/mqtap/internal/pipeline"
)

// Filter wraps a compiled CEL program. The zero value and any Filter
// compiled from an empty expression match everything.
type Filter struct {
	prog    cel.Program
	enabled bool
}

// Message is the evaluation input.
type Message struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
	At       time.Time
}

// Compile parses and checks expr. An empty expression yields a disabled
// filter that matches everything.
func Compile(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("topic", cel.StringType),
		cel.Variable("segments", cel.ListType(cel.StringType)),
		cel.Variable("qos", cel.IntType),
		cel.Variable("retained", cel.BoolType),
		cel.Variable("size", cel.IntType),
		cel.Variable("text", cel.StringType),
		// parsed JSON payload (map/list/values) for field filtering
		cel.Variable("json", cel.DynType),
		cel.Variable("ts_ms", cel.IntType),
		// current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return Filter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return Filter{}, err
	}
	return Filter{prog: prog, enabled: true}, nil
}

// Enabled reports whether a non-empty expression was compiled.
func (f Filter) Enabled() bool { return f.enabled }

// Eval evaluates the expression against m. Evaluation errors and
// non-boolean results count as no match.
func (f Filter) Eval(m Message) bool {
	if !f.enabled {
		return true
	}
	var jsonObj any
	_ = json.Unmarshal(m.Payload, &jsonObj)

	// same segmentation the trie uses, so an empty topic has no segments
	segments := pipeline.SplitTopic(m.Topic)
	out, _, err := f.prog.Eval(map[string]any{
		"topic":    m.Topic,
		"segments": segments,
		"qos":      int64(m.QoS),
		"retained": m.Retained,
		"size":     int64(len(m.Payload)),
		"text":     string(m.Payload),
		"json":     jsonObj,
		"ts_ms":    m.At.UnixMilli(),
		"now_ms":   time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
