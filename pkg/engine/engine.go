// Package engine evaluates modelling scripts. It wraps zygomys in a
// sandboxed environment and produces a model.Assembly from user source.
package engine

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/Krande/adapy-sub006/pkg/config"
	"github.com/Krande/adapy-sub006/pkg/model"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error, a runtime error in user code or a model
// validation error.
type EvalError struct {
	Line    int
	Col     int
	Message string
	NodeID  model.NodeID
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	timeout    time.Duration
	log        *slog.Logger
}

// NewEngine creates an Engine. A nil logger discards output.
func NewEngine(cfg config.Engine, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = EvalTimeout
	}
	return &Engine{timeout: timeout, log: logger}
}

// Evaluate runs source and returns the assembly it built.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns assembly + nil errors + nil error
//   - On parse/eval/validation failure: returns nil assembly + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*model.Assembly, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		a, evalErrs, err := e.evaluate(source)
		ch <- evalResult{assembly: a, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation, e.timeout)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*model.Assembly, []EvalError, error) {
	// Empty source is a valid program that produces an empty assembly.
	if strings.TrimSpace(source) == "" {
		return model.New(), nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := newBuilder()
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	a := b.finish()
	var evalErrs []EvalError
	for _, f := range model.Validate(a) {
		if f.Severity == model.SeverityWarning {
			e.log.Warn("model validation", "node", f.NodeID.Short(), "finding", f.Message)
			continue
		}
		evalErrs = append(evalErrs, EvalError{Message: f.Message, NodeID: f.NodeID})
	}
	if len(evalErrs) > 0 {
		return nil, evalErrs, nil
	}
	e.log.Debug("evaluated script", "nodes", a.NodeCount(), "roots", len(a.Roots))
	return a, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if loc := re.FindStringSubmatchIndex(msg); loc != nil {
			line, _ := strconv.Atoi(msg[loc[2]:loc[3]])
			// Keep any context zygomys put before the location marker.
			detail := strings.TrimSpace(msg[:loc[0]] + " " + msg[loc[4]:])
			return []EvalError{{Line: line, Message: detail}}
		}
	}
	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
