package scene

// DefaultColor is the palette entry selected on a fresh session.
const DefaultColor = "lightpink"

// NamedColor is a palette entry.
type NamedColor struct {
	Name string
	Hex  string
}

// Palette is the fixed set of selectable mesh colors.
var Palette = []NamedColor{
	{Name: "lightpink", Hex: "#FFB6C1"},
	{Name: "lightblue", Hex: "#ADD8E6"},
	{Name: "lightgreen", Hex: "#90EE90"},
	{Name: "lightgray", Hex: "#D3D3D3"},
	{Name: "lightsalmon", Hex: "#FFA07A"},
	{Name: "lightskyblue", Hex: "#87CEFA"},
	{Name: "gold", Hex: "#FFD700"},
	{Name: "orchid", Hex: "#DA70D6"},
	{Name: "silver", Hex: "#C0C0C0"},
	{Name: "white", Hex: "#FFFFFF"},
}

// LookupColor returns the palette entry with the given name.
func LookupColor(name string) (NamedColor, bool) {
	for _, c := range Palette {
		if c.Name == name {
			return c, true
		}
	}
	return NamedColor{}, false
}
