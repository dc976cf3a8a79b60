package styles

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// ThemeFile is a custom color theme loaded from YAML.
type ThemeFile struct {
	Name    string      `yaml:"name"`
	Version string      `yaml:"version"`
	Colors  ThemeColors `yaml:"colors"`
}

// ThemeColors lists the overridable colors in hex (#RGB or #RRGGBB).
// Empty entries keep the current color.
type ThemeColors struct {
	Primary   string `yaml:"primary,omitempty"`
	Secondary string `yaml:"secondary,omitempty"`
	Warning   string `yaml:"warning,omitempty"`
	Error     string `yaml:"error,omitempty"`
	Muted     string `yaml:"muted,omitempty"`
	Surface   string `yaml:"surface,omitempty"`
	Text      string `yaml:"text,omitempty"`
	Border    string `yaml:"border,omitempty"`
	Accent    string `yaml:"accent,omitempty"`
}

var hexColorRegex = regexp.MustCompile(`^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)

// LoadThemeFile reads and validates the theme at path.
func LoadThemeFile(path string) (*ThemeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading theme file: %w", err)
	}

	var theme ThemeFile
	if err := yaml.Unmarshal(data, &theme); err != nil {
		return nil, fmt.Errorf("parsing theme file: %w", err)
	}
	if err := theme.Validate(); err != nil {
		return nil, fmt.Errorf("invalid theme: %w", err)
	}
	return &theme, nil
}

// Validate checks the version and every non-empty color.
func (t *ThemeFile) Validate() error {
	if t.Name == "" {
		return errors.New("theme name is required")
	}
	if t.Version != "1" {
		return fmt.Errorf("unsupported theme version: %q (supported: 1)", t.Version)
	}
	for name, color := range t.colorMap() {
		if *color != "" && !hexColorRegex.MatchString(*color) {
			return fmt.Errorf("color '%s' has invalid format: %s (expected #RGB or #RRGGBB)", name, *color)
		}
	}
	return nil
}

// Apply overrides the package colors and rebuilds the styles.
func (t *ThemeFile) Apply() {
	targets := map[string]*lipgloss.Color{
		"primary":   &PrimaryColor,
		"secondary": &SecondaryColor,
		"warning":   &WarningColor,
		"error":     &ErrorColor,
		"muted":     &MutedColor,
		"surface":   &SurfaceColor,
		"text":      &TextColor,
		"border":    &BorderColor,
		"accent":    &AccentColor,
	}
	for name, color := range t.colorMap() {
		if *color != "" {
			*targets[name] = lipgloss.Color(*color)
		}
	}
	Rebuild()
}

func (t *ThemeFile) colorMap() map[string]*string {
	c := &t.Colors
	return map[string]*string{
		"primary":   &c.Primary,
		"secondary": &c.Secondary,
		"warning":   &c.Warning,
		"error":     &c.Error,
		"muted":     &c.Muted,
		"surface":   &c.Surface,
		"text":      &c.Text,
		"border":    &c.Border,
		"accent":    &c.Accent,
	}
}
