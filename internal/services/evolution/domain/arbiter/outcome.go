package arbiter

// Outcome is the resolved result of one rule. It is embedded in lineage
// events when it affects genetics, so its encoding is part of the signed
// record.
type Outcome struct {
	Kind Kind   `cbor:"1,keyasint" json:"kind" yaml:"kind"`
	Name string `cbor:"2,keyasint,omitempty" json:"name,omitempty" yaml:"name,omitempty"`
	// Success reports whether the rule passed. Weighted picks and dice
	// pools always succeed.
	Success bool `cbor:"3,keyasint" json:"success" yaml:"success"`
	// Roll is the deciding draw: the d10000 value, the kept d20 or the
	// weighted draw.
	Roll int `cbor:"4,keyasint" json:"roll" yaml:"roll"`
	// Rolls lists every die rolled, in draw order. For contests it holds
	// each contestant's total from the deciding round.
	Rolls  []int `cbor:"5,keyasint,omitempty" json:"rolls,omitempty" yaml:"rolls,omitempty"`
	Total  int   `cbor:"6,keyasint" json:"total" yaml:"total"`
	Target int   `cbor:"7,keyasint,omitempty" json:"target,omitempty" yaml:"target,omitempty"`
	Margin int   `cbor:"8,keyasint,omitempty" json:"margin,omitempty" yaml:"margin,omitempty"`

	CriticalSuccess bool `cbor:"9,keyasint,omitempty" json:"critical_success,omitempty" yaml:"critical_success,omitempty"`
	CriticalFailure bool `cbor:"10,keyasint,omitempty" json:"critical_failure,omitempty" yaml:"critical_failure,omitempty"`

	// Winner is the picked index for contests and weighted picks, -1
	// otherwise.
	Winner int `cbor:"11,keyasint" json:"winner" yaml:"winner"`
	// Rounds counts contest rounds played, tie-breaks included.
	Rounds int `cbor:"12,keyasint,omitempty" json:"rounds,omitempty" yaml:"rounds,omitempty"`
}
