package messages

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"gia/internal/core/model"
	"gia/internal/logger"
)

const (
	fallbackLocale  = "en"
	jokePlaceholder = "{joke}"
)

// FallbackText is shown when no catalog line can be resolved.
const FallbackText = "Time for a break. Look 20 feet away for 20 seconds."

// ErrNoMessage is returned when the catalog has no line for a request.
var ErrNoMessage = errors.New("no message for request")

//go:embed catalog.yaml
var embeddedCatalog []byte

type catalogFile struct {
	Locales map[string]map[model.Tone]map[model.BreakKind][]string `yaml:"locales"`
	Jokes   map[string][]string                                    `yaml:"jokes"`
}

// Generator turns (tone, kind, locale) into reminder text.
type Generator struct {
	catalog catalogFile
	pick    func(n int) int
}

// NewGenerator loads the embedded catalog.
func NewGenerator() (*Generator, error) {
	return NewGeneratorFromYAML(embeddedCatalog)
}

// NewGeneratorFromYAML parses a catalog in the embedded format.
func NewGeneratorFromYAML(data []byte) (*Generator, error) {
	var parsed catalogFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse message catalog: %w", err)
	}
	if len(parsed.Locales[fallbackLocale]) == 0 {
		return nil, fmt.Errorf("parse message catalog: missing %q locale", fallbackLocale)
	}
	return &Generator{catalog: parsed, pick: rand.Intn}, nil
}

// Generate returns a reminder line. Unknown locales fall back to their base
// language and then to English; unknown tones fall back to mindful.
func (generator *Generator) Generate(tone model.Tone, kind model.BreakKind, locale string) (string, error) {
	tone = model.ParseTone(string(tone))
	for _, candidate := range localeChain(locale) {
		tones, ok := generator.catalog.Locales[candidate]
		if !ok {
			continue
		}
		lines := tones[tone][kind]
		if len(lines) == 0 {
			lines = tones[model.ToneMindful][kind]
		}
		if len(lines) == 0 {
			continue
		}
		line := lines[generator.pick(len(lines))]
		if strings.Contains(line, jokePlaceholder) {
			line = strings.ReplaceAll(line, jokePlaceholder, generator.joke(candidate))
		}
		return strings.TrimSpace(line), nil
	}
	return "", fmt.Errorf("generate %s %s message for %q: %w", tone, kind, locale, ErrNoMessage)
}

// Text is Generate for callers that cannot handle errors.
func (generator *Generator) Text(tone model.Tone, kind model.BreakKind, locale string) string {
	if generator == nil {
		return FallbackText
	}
	text, err := generator.Generate(tone, kind, locale)
	if err != nil {
		logger.Warn("message generator fell back", "error", err)
		return FallbackText
	}
	return text
}

func (generator *Generator) joke(locale string) string {
	jokes := generator.catalog.Jokes[locale]
	if len(jokes) == 0 {
		jokes = generator.catalog.Jokes[fallbackLocale]
	}
	if len(jokes) == 0 {
		return ""
	}
	return jokes[generator.pick(len(jokes))]
}

// localeChain expands "pt-BR" into ["pt-br", "pt", "en"].
func localeChain(locale string) []string {
	normalized := normalizeLocale(locale)
	chain := make([]string, 0, 3)
	if normalized != "" {
		chain = append(chain, normalized)
		if base, _, found := strings.Cut(normalized, "-"); found {
			chain = append(chain, base)
		}
	}
	if len(chain) == 0 || chain[len(chain)-1] != fallbackLocale {
		chain = append(chain, fallbackLocale)
	}
	return chain
}

func normalizeLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	if idx := strings.IndexAny(locale, ".@"); idx >= 0 {
		locale = locale[:idx]
	}
	locale = strings.ToLower(strings.ReplaceAll(locale, "_", "-"))
	if locale == "c" || locale == "posix" {
		return fallbackLocale
	}
	return locale
}

// ResolveLocale maps the "auto" language setting to the process environment.
func ResolveLocale(setting string) string {
	setting = strings.TrimSpace(setting)
	if setting != "" && !strings.EqualFold(setting, model.DefaultLanguage) {
		return normalizeLocale(setting)
	}
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if value := normalizeLocale(os.Getenv(key)); value != "" {
			return value
		}
	}
	return fallbackLocale
}
