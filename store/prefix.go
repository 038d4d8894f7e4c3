package store

// PrefixKV scopes a KV to a module's prefix. Paths passed in are relative;
// the prefix is prepended on the way down and stripped on the way up.
// Module prefixes are disjoint, so two PrefixKVs over the same store never
// observe each other's writes.
type PrefixKV struct {
	prefix Identifier
	inner  KV
}

var _ KV = PrefixKV{}

// NewPrefixKV scopes kv under prefix.
func NewPrefixKV(prefix Identifier, kv KV) PrefixKV {
	return PrefixKV{prefix: prefix, inner: kv}
}

func (p PrefixKV) qualify(path Path) Path {
	if len(path) == 0 {
		return Path(p.prefix)
	}
	return Path(p.prefix).Join(string(path))
}

// Get retrieves the value at the prefixed path.
func (p PrefixKV) Get(path Path) ([]byte, bool) {
	return p.inner.Get(p.qualify(path))
}

// Set stores a value at the prefixed path.
func (p PrefixKV) Set(path Path, value []byte) error {
	return p.inner.Set(p.qualify(path), value)
}

// Delete removes the prefixed path.
func (p PrefixKV) Delete(path Path) error {
	return p.inner.Delete(p.qualify(path))
}

// GetKeys lists the keys under the prefixed prefix, with the module prefix
// stripped from the results.
func (p PrefixKV) GetKeys(prefix Path) []Path {
	full := p.inner.GetKeys(p.qualify(prefix))
	keys := make([]Path, 0, len(full))
	for _, k := range full {
		if rel, ok := k.StripPrefix(Path(p.prefix)); ok {
			keys = append(keys, rel)
		}
	}
	return keys
}

// PrefixScope scopes both halves of a Scope under a module prefix.
func PrefixScope(prefix Identifier, s Scope) Scope {
	return scope{
		provable: NewPrefixKV(prefix, s.Provable()),
		mem:      NewPrefixKV(prefix, s.Mem()),
	}
}
