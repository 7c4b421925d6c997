package host

import (
	"fmt"
	"regexp"
	"strings"
)

// CmdType is the way a command is triggered.
type CmdType string

// Command types. A plain string cmd is a keyword.
const (
	CmdKeyword CmdType = "keyword"
	CmdRegex   CmdType = "regex"
	CmdOver    CmdType = "over"
	CmdImage   CmdType = "img"
	CmdFiles   CmdType = "files"
	CmdWindow  CmdType = "window"
)

// DefaultOverMaxLength is the longest input an over cmd accepts when it
// sets no limit.
const DefaultOverMaxLength = 10000

// WindowMatch selects windows for a window cmd.
type WindowMatch struct {
	App   []string
	Title string
	Class []string
}

// Cmd is one trigger of a feature.
type Cmd struct {
	Type  CmdType
	Label string

	// Match is the regex of regex and files cmds.
	Match string
	// Exclude is a regex that rejects input for over cmds.
	Exclude   string
	MinLength int
	MaxLength int

	// FileType restricts files cmds to "file" or "directory".
	FileType string
	Window   WindowMatch

	match   *regexp.Regexp
	exclude *regexp.Regexp
}

// Keyword returns a keyword cmd.
func Keyword(label string) Cmd {
	return Cmd{Type: CmdKeyword, Label: label}
}

// Feature is the launcher-facing description of a compiled feature.
type Feature struct {
	Code     string
	Explain  string
	Icon     string
	Platform []string
	Cmds     []Cmd
}

// SupportsPlatform reports whether the feature runs on goos. An empty
// platform list means every platform.
func (f Feature) SupportsPlatform(goos string) bool {
	if len(f.Platform) == 0 {
		return true
	}
	name := platformName(goos)
	for _, p := range f.Platform {
		if p == name {
			return true
		}
	}
	return false
}

func platformName(goos string) string {
	if goos == "windows" {
		return "win32"
	}
	return goos
}

// Meta is the display data a template may carry, used to derive a Feature
// when no explicit metadata is configured.
type Meta struct {
	Code        string
	Title       string
	Description string
	Icon        string
}

// DeriveFeature builds the default feature of a template: the explain is
// the plugin name followed by the description and the only cmd is a
// keyword made of the plugin name and the title.
func DeriveFeature(plugin string, m Meta) Feature {
	return Feature{
		Code:    m.Code,
		Explain: strings.TrimSpace(plugin + " " + m.Description),
		Icon:    m.Icon,
		Cmds:    []Cmd{Keyword(strings.TrimSpace(plugin + " " + m.Title))},
	}
}

// FeatureSpec is the decoded form of a feature in configuration files and
// plugin manifests. Cmds holds strings and tables as decoded.
type FeatureSpec struct {
	Code     string   `json:"code" toml:"code" yaml:"code"`
	Explain  string   `json:"explain" toml:"explain" yaml:"explain"`
	Icon     string   `json:"icon,omitempty" toml:"icon" yaml:"icon,omitempty"`
	Platform []string `json:"platform,omitempty" toml:"platform" yaml:"platform,omitempty"`
	Cmds     []any    `json:"cmds" toml:"cmds" yaml:"cmds"`
}

// Build validates the spec and compiles its cmds.
func (s FeatureSpec) Build() (Feature, error) {
	if s.Code == "" {
		return Feature{}, fmt.Errorf("%w: code is required", ErrInvalidFeature)
	}
	f := Feature{
		Code:     s.Code,
		Explain:  s.Explain,
		Icon:     s.Icon,
		Platform: s.Platform,
		Cmds:     make([]Cmd, 0, len(s.Cmds)),
	}
	for i, raw := range s.Cmds {
		cmd, err := ParseCmd(raw)
		if err != nil {
			return Feature{}, fmt.Errorf("feature %q cmd %d: %w", s.Code, i, err)
		}
		f.Cmds = append(f.Cmds, cmd)
	}
	return f, nil
}

// ParseCmd converts a decoded cmd. Strings become keywords; maps need a
// "type" key.
func ParseCmd(raw any) (Cmd, error) {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return Cmd{}, fmt.Errorf("%w: empty keyword", ErrInvalidCmd)
		}
		return Keyword(v), nil
	case map[string]any:
		return parseCmdMap(v)
	}
	return Cmd{}, fmt.Errorf("%w: unexpected %T", ErrInvalidCmd, raw)
}

func parseCmdMap(m map[string]any) (Cmd, error) {
	cmd := Cmd{
		Type:     CmdType(str(m["type"])),
		Label:    str(m["label"]),
		Exclude:  str(m["exclude"]),
		FileType: str(m["fileType"]),
	}
	cmd.MinLength = num(m["minLength"])
	cmd.MaxLength = num(m["maxLength"])

	switch match := m["match"].(type) {
	case string:
		cmd.Match = match
	case map[string]any:
		cmd.Window = WindowMatch{
			App:   strs(match["app"]),
			Title: str(match["title"]),
			Class: strs(match["class"]),
		}
	}

	if err := cmd.compile(); err != nil {
		return Cmd{}, err
	}
	return cmd, nil
}

func (c *Cmd) compile() error {
	var err error
	switch c.Type {
	case CmdKeyword:
		if c.Label == "" {
			return fmt.Errorf("%w: keyword needs a label", ErrInvalidCmd)
		}
	case CmdRegex:
		if c.Match == "" {
			return fmt.Errorf("%w: regex cmd needs match", ErrInvalidCmd)
		}
		c.match, err = CompilePattern(c.Match)
	case CmdOver:
		if c.Exclude != "" {
			c.exclude, err = CompilePattern(c.Exclude)
		}
		if c.MaxLength <= 0 {
			c.MaxLength = DefaultOverMaxLength
		}
	case CmdFiles:
		if c.Match != "" {
			c.match, err = CompilePattern(c.Match)
		}
	case CmdImage, CmdWindow:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidCmd, c.Type)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCmd, err)
	}
	return nil
}

// CompilePattern compiles a regex written either as a bare pattern or in
// "/pattern/flags" form. The i, m and s flags are honored, g is ignored.
func CompilePattern(p string) (*regexp.Regexp, error) {
	if len(p) >= 2 && p[0] == '/' {
		if end := strings.LastIndexByte(p, '/'); end > 0 {
			body, flags := p[1:end], p[end+1:]
			var mods strings.Builder
			for _, f := range flags {
				switch f {
				case 'i', 'm', 's':
					mods.WriteRune(f)
				case 'g', 'u', 'y':
				default:
					return nil, fmt.Errorf("unsupported regex flag %q", f)
				}
			}
			if mods.Len() > 0 {
				body = "(?" + mods.String() + ")" + body
			}
			return regexp.Compile(body)
		}
	}
	return regexp.Compile(p)
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func strs(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func num(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
