// Package persona defines the avatar personalities a session can be
// guided by and the scripted conversations the mock provider plays for
// each of them.
package persona

// Key identifies an avatar personality.
type Key string

// The built-in personas.
const (
	KeyOracle Key = "oracle"
	KeySpark  Key = "spark"
	KeyForge  Key = "forge"
	KeyFlow   Key = "flow"
)

// DefaultKey is used when a request names no persona or an unknown one.
const DefaultKey = KeyOracle

// Persona is one avatar personality: display identity plus the traits
// the system prompt leans on.
type Persona struct {
	Key   Key      `json:"key" yaml:"key"`
	Name  string   `json:"name" yaml:"name"`
	Emoji string   `json:"emoji" yaml:"emoji"`
	Trait string   `json:"trait" yaml:"trait"`
	Tags  []string `json:"tags" yaml:"tags"`
	Color string   `json:"color" yaml:"color"`

	// VoiceID selects the synthesis voice for spoken replies.
	VoiceID string `json:"voice_id,omitempty" yaml:"voice_id,omitempty"`
}

var catalogue = map[Key]Persona{
	KeyOracle: {
		Key:     KeyOracle,
		Name:    "Oracle",
		Emoji:   "🧠",
		Trait:   "Strategic & analytical. Asks the hard questions. Has opinions.",
		Tags:    []string{"Industry patterns", "Opinionated", "Pushes back"},
		Color:   "#2d8014",
		VoiceID: "pNInz6obpgDQGcFmaJgB",
	},
	KeySpark: {
		Key:     KeySpark,
		Name:    "Spark",
		Emoji:   "⚡",
		Trait:   "Creative & lateral. Sees connections nobody else does.",
		Tags:    []string{"What-if scenarios", "Pattern finder", "Lateral"},
		Color:   "#d97706",
		VoiceID: "TxGEqnHWrfWFTfGW9XjX",
	},
	KeyForge: {
		Key:     KeyForge,
		Name:    "Forge",
		Emoji:   "🔨",
		Trait:   "Direct & no-nonsense. Ships fast. Cuts the waste.",
		Tags:    []string{"No fluff", "Fast decisions", "Ship it"},
		Color:   "#6366f1",
		VoiceID: "VR6AewLTigWG4xSOukaG",
	},
	KeyFlow: {
		Key:     KeyFlow,
		Name:    "Flow",
		Emoji:   "🌊",
		Trait:   "Patient & thorough. Takes it step by step. Nothing missed.",
		Tags:    []string{"Step by step", "Calm guidance", "Thorough"},
		Color:   "#06b6d4",
		VoiceID: "21m00Tcm4TlvDq8ikWAM",
	},
}

// Get returns the persona for key, falling back to the default for
// unknown keys.
func Get(key Key) Persona {
	if p, ok := catalogue[key]; ok {
		return p
	}
	return catalogue[DefaultKey]
}

// Known reports whether key names a built-in persona.
func Known(key Key) bool {
	_, ok := catalogue[key]
	return ok
}

// Keys returns the persona keys in a stable order.
func Keys() []Key {
	return []Key{KeyOracle, KeySpark, KeyForge, KeyFlow}
}
