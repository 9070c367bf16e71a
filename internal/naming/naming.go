// Package naming maps a parameter combination to a deterministic,
// filesystem-friendly model file name.
package naming

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/vk/sweepgridgo/internal/sweep"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Encoder substitutes formatted parameter values into a naming template.
// Encoding is pure: identical combinations always yield identical names.
type Encoder struct {
	format    string
	extension string
}

// NewEncoder builds an Encoder from a template with {name} placeholders
// and a file extension (including the leading dot).
func NewEncoder(format, extension string) *Encoder {
	return &Encoder{format: format, extension: extension}
}

// Placeholders returns the parameter names a template references, in
// order of first appearance.
func Placeholders(format string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(format, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Encode produces the file name for one combination. Every placeholder
// must name a parameter present in the combination.
func (e *Encoder) Encode(c sweep.Combination) (string, error) {
	var missing []string
	name := placeholderPattern.ReplaceAllStringFunc(e.format, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := c[key]
		if !ok {
			missing = append(missing, key)
			return m
		}
		return FormatValue(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("template references parameters absent from combination: %s", strings.Join(missing, ", "))
	}
	return name + e.extension, nil
}

// FormatValue renders one parameter value. Magnitudes below 0.01 or above
// 1e6 use scientific notation with three mantissa digits and a normalized
// exponent marker ("e+06" becomes "e6", "e-03" becomes "e-3"); everything
// else is fixed-point with three decimal digits. Zero falls under the
// small-magnitude branch and renders as "0.000e0".
func FormatValue(v float64) string {
	abs := math.Abs(v)
	if abs < 1e-2 || abs > 1e6 {
		return normalizeExponent(strconv.FormatFloat(v, 'e', 3, 64))
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// normalizeExponent elides the "+" of positive exponents and strips
// leading exponent zeros so names stay filesystem-friendly. Negative
// exponents keep their "-" marker.
func normalizeExponent(s string) string {
	i := strings.IndexByte(s, 'e')
	if i < 0 {
		return s
	}
	mantissa, exp := s[:i], s[i+1:]
	neg := false
	switch {
	case strings.HasPrefix(exp, "+"):
		exp = exp[1:]
	case strings.HasPrefix(exp, "-"):
		neg = true
		exp = exp[1:]
	}
	exp = strings.TrimLeft(exp, "0")
	if exp == "" {
		exp = "0"
	}
	if neg {
		return mantissa + "e-" + exp
	}
	return mantissa + "e" + exp
}
