package settings

// Keys of the persisted session snapshot. The values live in the
// settings store; defaults apply on first open.
const (
	KeyPathToMusic    = "path_to_music"
	KeyCurrentSong    = "current_song"
	KeyCountMusics    = "count_musics"
	KeyCurrentVolume  = "current_volume"
	KeyDefVolume      = "def_volume"
	KeyStepVolume     = "step_volume"
	KeyUpdateInterval = "interval_update_music"
	KeyMoveInterval   = "interval_move_music"
	KeyWinWidth       = "win_width"
	KeyWinHeight      = "win_height"
	KeyLanguage       = "language"
	KeyTheme          = "theme"
)

// Type is the expected value type of a settings field.
type Type int

const (
	TypeString Type = iota
	TypeInt
	// TypeDuration values are stored as integer milliseconds.
	TypeDuration
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeDuration:
		return "duration"
	default:
		return "unknown"
	}
}

// Field describes one settings key: its expected type, its default
// (in stored string form), optional allowed values, and an optional
// inclusive integer range.
type Field struct {
	Type    Type
	Default string
	Enum    []string
	Min     int
	Max     int
	Ranged  bool
}

// Schema is the fixed settings schema. Validation happens at the store
// boundary: unknown keys, type mismatches, and out-of-range or
// non-enumerated values are rejected before anything is written.
var Schema = map[string]Field{
	KeyPathToMusic:    {Type: TypeString, Default: ""},
	KeyCurrentSong:    {Type: TypeInt, Default: "0"},
	KeyCountMusics:    {Type: TypeInt, Default: "0"},
	KeyCurrentVolume:  {Type: TypeInt, Default: "70", Min: 0, Max: 100, Ranged: true},
	KeyDefVolume:      {Type: TypeInt, Default: "70", Min: 0, Max: 100, Ranged: true},
	KeyStepVolume:     {Type: TypeInt, Default: "10", Min: 1, Max: 100, Ranged: true},
	KeyUpdateInterval: {Type: TypeDuration, Default: "500"},
	KeyMoveInterval:   {Type: TypeDuration, Default: "5000"},
	KeyWinWidth:       {Type: TypeInt, Default: "420", Min: 1, Max: 10000, Ranged: true},
	KeyWinHeight:      {Type: TypeInt, Default: "120", Min: 1, Max: 10000, Ranged: true},
	KeyLanguage:       {Type: TypeString, Default: "en", Enum: []string{"en", "ru"}},
	KeyTheme:          {Type: TypeString, Default: "dark", Enum: []string{"dark", "light"}},
}

// Keys returns all schema keys in a stable order.
func Keys() []string {
	return []string{
		KeyPathToMusic,
		KeyCurrentSong,
		KeyCountMusics,
		KeyCurrentVolume,
		KeyDefVolume,
		KeyStepVolume,
		KeyUpdateInterval,
		KeyMoveInterval,
		KeyWinWidth,
		KeyWinHeight,
		KeyLanguage,
		KeyTheme,
	}
}
