package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/threedframe/pkg/config"
	"github.com/chazu/threedframe/pkg/model"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites a build-plan script before zygomys sees it:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal),
//     so keywords never collide with script variables.
//
//  2. Kebab-case to underscore: no-cache -> no_cache. zygomys reads a
//     hyphen inside an identifier as subtraction.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
// A keyword always takes the next argument as its value, so values may be
// keywords themselves (:strategy :core-only).
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value is a flag.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_stl) and plain strings ("stl").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toVertexSpecs flattens strings, integers and lists of them into vertex
// selection specs.
func toVertexSpecs(args []zygo.Sexp) ([]string, error) {
	var out []string
	for _, a := range args {
		switch v := a.(type) {
		case *zygo.SexpStr:
			out = append(out, v.S)
		case *zygo.SexpInt:
			out = append(out, strconv.FormatInt(v.Val, 10))
		default:
			items, err := sexpListToSlice(a)
			if err != nil {
				return nil, fmt.Errorf("expected vertex label, index or list: %w", err)
			}
			inner, err := toVertexSpecs(items)
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)
		}
	}
	return out, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the build-plan builtins into a zygomys
// environment. Each builtin records its effect on p.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, p *Plan) {

	// (scale 0.69)
	env.AddFunction("scale", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("scale requires exactly 1 argument, got %d", len(args))
		}
		f, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("scale: %w", err)
		}
		if f <= 0 {
			return zygo.SexpNull, fmt.Errorf("scale: must be positive, got %g", f)
		}
		p.Scale = &f
		return zygo.SexpNull, nil
	})

	// (kernel :scad)
	env.AddFunction("kernel", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("kernel requires exactly 1 argument, got %d", len(args))
		}
		k, err := toKeywordString(args[0])
		if err == nil {
			err = checkKernel(k)
		}
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("kernel: %w", err)
		}
		p.Kernel = k
		return zygo.SexpNull, nil
	})

	// (strategy :fixtures-only)
	env.AddFunction("strategy", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("strategy requires exactly 1 argument, got %d", len(args))
		}
		s, err := toKeywordString(args[0])
		if err == nil {
			err = checkStrategy(s)
		}
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("strategy: %w", err)
		}
		p.Strategy = s
		return zygo.SexpNull, nil
	})

	// (render) or (render :png)
	env.AddFunction("render", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		format := ""
		switch len(args) {
		case 0:
		case 1:
			f, err := toKeywordString(args[0])
			if err == nil {
				err = checkFormat(f)
			}
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("render: %w", err)
			}
			format = f
		default:
			return zygo.SexpNull, fmt.Errorf("render takes at most 1 argument, got %d", len(args))
		}
		p.Render = &format
		return zygo.SexpNull, nil
	})

	// (parallel) or (parallel 4)
	env.AddFunction("parallel", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		on := true
		if len(args) > 1 {
			return zygo.SexpNull, fmt.Errorf("parallel takes at most 1 argument, got %d", len(args))
		}
		if len(args) == 1 {
			n, err := toInt(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("parallel: workers: %w", err)
			}
			if n < 1 {
				return zygo.SexpNull, fmt.Errorf("parallel: workers must be at least 1, got %d", n)
			}
			p.Workers = n
		}
		p.Parallel = &on
		return zygo.SexpNull, nil
	})

	// (no-cache)
	//
	// Registered as "no_cache"; the preprocessor rewrites the hyphen.
	env.AddFunction("no_cache", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		p.NoCache = true
		return zygo.SexpNull, nil
	})

	// (parts :core :fixtures :fixture-label)
	env.AddFunction("parts", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		parts := make([]string, 0, len(args))
		for i, a := range args {
			s, err := toKeywordString(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("parts: argument %d: %w", i, err)
			}
			parts = append(parts, s)
		}
		if _, err := partsToBuild(config.BuildConfig{}, parts); err != nil {
			return zygo.SexpNull, err
		}
		p.Parts = parts
		return zygo.SexpNull, nil
	})

	// (joints "AA" "3-7" 12)
	env.AddFunction("joints", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		specs, err := toVertexSpecs(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("joints: %w", err)
		}
		if len(specs) == 0 {
			return zygo.SexpNull, fmt.Errorf("joints requires at least one vertex")
		}
		p.Jobs = append(p.Jobs, Job{Vertices: specs})
		return zygo.SexpNull, nil
	})

	// (job :vertices (list "AA" "AB") :strategy :single-fixture :fixture "AA@AB")
	env.AddFunction("job", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("job takes only keyword arguments, got %d positional", len(pa.positional))
		}
		var j Job

		v, ok := pa.kw["vertices"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("job requires :vertices")
		}
		specs, err := toVertexSpecs([]zygo.Sexp{v})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("job: vertices: %w", err)
		}
		j.Vertices = specs

		if v, ok := pa.kw["strategy"]; ok {
			s, err := toKeywordString(v)
			if err == nil {
				err = checkStrategy(s)
			}
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("job: strategy: %w", err)
			}
			j.Strategy = s
		}
		if v, ok := pa.kw["fixture"]; ok {
			s, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("job: fixture: %w", err)
			}
			j.Fixture = s
		}

		p.Jobs = append(p.Jobs, j)
		return zygo.SexpNull, nil
	})

	// (labels 3) => ("AA" "AB" "AC")
	env.AddFunction("labels", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("labels requires exactly 1 argument, got %d", len(args))
		}
		n, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("labels: %w", err)
		}
		if n < 0 || n > model.MaxLabels {
			return zygo.SexpNull, fmt.Errorf("labels: count %d out of range 0-%d", n, model.MaxLabels)
		}
		var items []zygo.Sexp
		for _, l := range model.Labels(n) {
			items = append(items, &zygo.SexpStr{S: l})
		}
		return zygo.MakeList(items), nil
	})
}
