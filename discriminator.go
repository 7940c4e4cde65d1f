package requestum

// Discriminator decides whether a format claims a message, from the
// message content alone. Discriminators are cheap to evaluate compared
// to full envelope parsing.
type Discriminator interface {
	Match(v View) bool
}

// HasFields returns a Discriminator that matches when all paths exist.
func HasFields(paths ...string) Discriminator {
	return hasFields{paths: paths}
}

type hasFields struct {
	paths []string
}

func (d hasFields) Match(v View) bool {
	for _, p := range d.paths {
		if !v.HasField(p) {
			return false
		}
	}
	return true
}

// FieldEquals returns a Discriminator that matches when the path exists
// and equals the given string value.
func FieldEquals(path, value string) Discriminator {
	return fieldEquals{path: path, value: value}
}

type fieldEquals struct {
	path  string
	value string
}

func (d fieldEquals) Match(v View) bool {
	s, ok := v.GetString(d.path)
	return ok && s == d.value
}

// FieldOneOf returns a Discriminator that matches when the path exists
// and equals any of the given string values.
func FieldOneOf(path string, values ...string) Discriminator {
	return fieldOneOf{path: path, values: values}
}

type fieldOneOf struct {
	path   string
	values []string
}

func (d fieldOneOf) Match(v View) bool {
	s, ok := v.GetString(d.path)
	if !ok {
		return false
	}
	for _, val := range d.values {
		if s == val {
			return true
		}
	}
	return false
}

// And returns a Discriminator that matches when all discriminators match.
func And(ds ...Discriminator) Discriminator {
	return and{ds: ds}
}

type and struct {
	ds []Discriminator
}

func (d and) Match(v View) bool {
	for _, disc := range d.ds {
		if !disc.Match(v) {
			return false
		}
	}
	return true
}

// Or returns a Discriminator that matches when any discriminator matches.
func Or(ds ...Discriminator) Discriminator {
	return or{ds: ds}
}

type or struct {
	ds []Discriminator
}

func (d or) Match(v View) bool {
	for _, disc := range d.ds {
		if disc.Match(v) {
			return true
		}
	}
	return false
}

// Not returns a Discriminator that matches when the given one does not.
func Not(d Discriminator) Discriminator {
	return not{d: d}
}

type not struct {
	d Discriminator
}

func (n not) Match(v View) bool {
	return !n.d.Match(v)
}
