package ir

import "strings"

// Attr is one attribute attached to a declaration, e.g. `#[repr(C)]` is
// {Name: "repr", Args: ["C"]} and `#[export_name = "f"]` is
// {Name: "export_name", Value: "f"}.
type Attr struct {
	Name  string   `json:"name"`
	Value string   `json:"value,omitempty"`
	Args  []string `json:"args,omitempty"`
}

// Attrs is the attribute list of a declaration, in source order.
type Attrs []Attr

// Has reports whether an attribute with the given name is present.
func (a Attrs) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// Get returns the first attribute with the given name.
func (a Attrs) Get(name string) (Attr, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr, true
		}
	}
	return Attr{}, false
}

// HasArg reports whether some attribute `name(..)` lists arg.
func (a Attrs) HasArg(name, arg string) bool {
	for _, attr := range a {
		if attr.Name != name {
			continue
		}
		for _, x := range attr.Args {
			if x == arg {
				return true
			}
		}
	}
	return false
}

// ReprC reports a C-compatible layout (`repr(C)`), which makes every field
// of the aggregate observable by foreign code.
func (a Attrs) ReprC() bool { return a.HasArg("repr", "C") }

// ParseAttr parses the textual attribute forms accepted by the front end:
//
//	name
//	name(arg, arg)
//	name = "value"
func ParseAttr(s string) (Attr, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "#[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return Attr{}, false
	}

	if i := strings.IndexByte(s, '='); i >= 0 && !strings.Contains(s[:i], "(") {
		name := strings.TrimSpace(s[:i])
		value := strings.Trim(strings.TrimSpace(s[i+1:]), `"`)
		if !isAttrName(name) {
			return Attr{}, false
		}
		return Attr{Name: name, Value: value}, true
	}

	if i := strings.IndexByte(s, '('); i >= 0 {
		if !strings.HasSuffix(s, ")") {
			return Attr{}, false
		}
		name := strings.TrimSpace(s[:i])
		if !isAttrName(name) {
			return Attr{}, false
		}
		var args []string
		for _, arg := range strings.Split(s[i+1:len(s)-1], ",") {
			if arg = strings.TrimSpace(arg); arg != "" {
				args = append(args, arg)
			}
		}
		return Attr{Name: name, Args: args}, true
	}

	if !isAttrName(s) {
		return Attr{}, false
	}
	return Attr{Name: s}, true
}

func isAttrName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r == ':' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
