package value

// ObjString is an immutable, interned character sequence. Two ObjString
// pointers denote the same characters if and only if they are the same
// pointer (see Equal and Interner).
type ObjString struct {
	chars string
	hash  uint32
}

var _ Value = (*ObjString)(nil)

func (s *ObjString) String() string { return s.chars }
func (s *ObjString) Type() string   { return "string" }

// Chars returns the string's characters.
func (s *ObjString) Chars() string { return s.chars }

// Hash returns the string's precomputed FNV-1a hash.
func (s *ObjString) Hash() uint32 { return s.hash }

// fnv1a32 computes the 32-bit FNV-1a hash of s.
func fnv1a32(s string) uint32 {
	const (
		offsetBasis uint32 = 2166136261
		prime       uint32 = 16777619
	)
	hash := offsetBasis
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= prime
	}
	return hash
}

// Interner is the process-lifetime string pool (spec §4.2). Every identifier
// and string literal the compiler embeds as a constant, and every runtime
// string produced by concatenation, is interned through it so that string
// equality reduces to pointer equality.
type Interner struct {
	pool *Table
}

// NewInterner returns an empty string pool.
func NewInterner() *Interner {
	return &Interner{pool: NewTable()}
}

// Intern returns the canonical *ObjString for chars, allocating and
// registering a new one only if no equal string is already interned.
// Intern(s) == Intern(s) for any two calls with equal characters
// (idempotence, spec §8).
func (in *Interner) Intern(chars string) *ObjString {
	hash := fnv1a32(chars)
	if existing := in.pool.findString(chars, hash); existing != nil {
		return existing
	}
	s := &ObjString{chars: chars, hash: hash}
	in.pool.Set(s, Nil)
	return s
}
