package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DefaultTimeout     = 60 * time.Second
	DefaultMaxFailures = 5
	DefaultCooldown    = 30 * time.Second

	// Appended to every structured request.
	jsonOnlyInstruction = "IMPORTANT: Respond with valid JSON only."

	notConfiguredText = "Error: LLM not configured. Please check your API key."
)

var (
	ErrNotConfigured   = errors.New("llm not configured")
	ErrBackend         = errors.New("llm backend failure")
	ErrMalformedOutput = errors.New("llm output is not a JSON object")
)

// Backend performs a single text-generation request.
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config selects and parameterizes the model backend. An empty APIKey yields a
// gateway in the not-configured state.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxFailures uint32
	// How long the breaker stays open before letting a trial call through.
	Cooldown    time.Duration
}

// Gateway is the only path from the rest of the application to a model. Its
// Generate* methods never fail: problems are logged and degrade to an error
// marker string or an empty object.
type Gateway struct {
	backend Backend
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// New builds the backend named by cfg.Provider. Only an unknown provider or a
// backend that cannot be constructed is reported as an error.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Gateway, error) {
	if cfg.APIKey == "" {
		log.Warn().Str("event", "llm_not_configured").Str("provider", cfg.Provider).
			Msg("no API key present, model calls will return an error marker")
		return NewWithBackend(nil, cfg, log), nil
	}

	var backend Backend
	switch cfg.Provider {
	case "", ProviderGemini:
		b, err := NewGeminiBackend(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("creating gemini backend: %w", err)
		}
		backend = b
	case ProviderOpenAI:
		backend = NewOpenAIBackend(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	return NewWithBackend(backend, cfg, log), nil
}

// NewWithBackend wraps an existing backend. A nil backend means not configured.
func NewWithBackend(backend Backend, cfg Config, log zerolog.Logger) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = DefaultMaxFailures
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	g := &Gateway{backend: backend, timeout: timeout, log: log}
	g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "llm",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return g
}

// Configured reports whether a backend is present.
func (g *Gateway) Configured() bool {
	return g.backend != nil
}

// Available reports whether a call would reach the backend now. It is false
// while the circuit breaker is open. A gateway without a backend is available:
// its calls fail fast with ErrNotConfigured.
func (g *Gateway) Available() bool {
	return g.cb.State() != gobreaker.StateOpen
}

// Complete sends instruction and input, separated by a blank line, as one
// request. Errors wrap ErrNotConfigured or ErrBackend.
func (g *Gateway) Complete(ctx context.Context, instruction, input string) (string, error) {
	return g.call(ctx, instruction+"\n\n"+input)
}

func (g *Gateway) call(ctx context.Context, prompt string) (string, error) {
	if g.backend == nil {
		return "", ErrNotConfigured
	}

	ctx, cancel := contextWithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	out, err := g.cb.Execute(func() (interface{}, error) {
		return g.backend.Generate(ctx, prompt)
	})
	if err != nil {
		return "", &BackendError{Err: err}
	}
	g.log.Debug().Dur("took", time.Since(start)).Int("prompt_len", len(prompt)).Msg("llm call completed")
	return out.(string), nil
}

// GenerateText returns the raw model reply, or a human-readable error string
// when the model cannot be reached.
func (g *Gateway) GenerateText(ctx context.Context, instruction, input string) string {
	text, err := g.Complete(ctx, instruction, input)
	if err != nil {
		g.logFailure(err, "text")
		if errors.Is(err, ErrNotConfigured) {
			return notConfiguredText
		}
		return fmt.Sprintf("Error generating response: %v", errors.Unwrap(err))
	}
	return text
}

// GenerateStructured asks for a JSON reply and parses the recovered object.
// Any failure yields an empty, non-nil map.
func (g *Gateway) GenerateStructured(ctx context.Context, instruction, input string) map[string]any {
	result, err := g.Structured(ctx, instruction, input)
	if err != nil {
		g.logFailure(err, "structured")
		return map[string]any{}
	}
	return result
}

// Structured is GenerateStructured with the failure reported. Errors wrap
// ErrNotConfigured, ErrBackend or ErrMalformedOutput.
func (g *Gateway) Structured(ctx context.Context, instruction, input string) (map[string]any, error) {
	text, err := g.call(ctx, instruction+"\n\n"+input+"\n\n"+jsonOnlyInstruction)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if err := json.Unmarshal([]byte(ExtractJSONSpan(text)), &result); err != nil || result == nil {
		return nil, &MalformedOutputError{Raw: text, Err: err}
	}
	return result, nil
}

func (g *Gateway) logFailure(err error, mode string) {
	var malformed *MalformedOutputError
	switch {
	case errors.Is(err, ErrNotConfigured):
		g.log.Warn().Str("event", "llm_not_configured").Str("mode", mode).Msg("model call skipped")
	case errors.As(err, &malformed):
		g.log.Warn().Str("event", "llm_malformed_output").Str("mode", mode).Err(malformed.Err).
			Str("raw", truncate(malformed.Raw, 500)).Msg("could not decode JSON from model reply")
	default:
		g.log.Error().Str("event", "llm_backend_failure").Str("mode", mode).Err(err).Msg("model call failed")
	}
}

// BackendError wraps a failed, timed out or short-circuited backend call.
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string { return fmt.Sprintf("%v: %v", ErrBackend, e.Err) }

func (e *BackendError) Is(target error) bool { return target == ErrBackend }

func (e *BackendError) Unwrap() error { return e.Err }

// MalformedOutputError carries the reply that could not be decoded.
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	if e.Err == nil {
		return ErrMalformedOutput.Error()
	}
	return fmt.Sprintf("%v: %v", ErrMalformedOutput, e.Err)
}

func (e *MalformedOutputError) Is(target error) bool { return target == ErrMalformedOutput }

func (e *MalformedOutputError) Unwrap() error { return e.Err }

func contextWithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
