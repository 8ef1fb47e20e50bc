package disposition

import "github.com/knockerapp/fieldsync/pkg/enums"

// Shape is the marker outline drawn on the map.
type Shape string

const (
	ShapeCircle Shape = "circle"
	ShapeSquare Shape = "square"
)

// Style is the visual state derived for a property marker. It is computed
// on demand and never persisted, so it cannot go stale relative to the
// event history it was derived from.
type Style struct {
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	MarkerColor string `json:"markerColor"`
	Shape       Shape  `json:"shape"`
}

// StatusNotKnocked is the implicit status of a property with no knock
// events under the selected category.
const StatusNotKnocked = "Not Knocked"

// defaultStyle is the neutral gray marker shown for unknocked properties
// and unrecognized statuses.
var defaultStyle = Style{
	Icon:        "home",
	Color:       "#6B7280",
	MarkerColor: "#9CA3AF",
	Shape:       ShapeCircle,
}

// styleKey identifies one cell of the style table.
type styleKey struct {
	disposition enums.DispositionType
	status      string
}

// styleTable is data, not control flow: extending a category with a new
// status only means adding a row here.
var styleTable = map[styleKey]Style{
	{enums.DispositionInsuranceRestoration, "Contact Made"}:            {Icon: "user-check", Color: "#3B82F6", MarkerColor: "#60A5FA", Shape: ShapeCircle},
	{enums.DispositionInsuranceRestoration, "Lead"}:                    {Icon: "star", Color: "#F59E0B", MarkerColor: "#FBBF24", Shape: ShapeSquare},
	{enums.DispositionInsuranceRestoration, "Got Utility Bill (Lead)"}: {Icon: "star", Color: "#F59E0B", MarkerColor: "#FBBF24", Shape: ShapeSquare},
	{enums.DispositionInsuranceRestoration, "Not Home"}:                {Icon: "home", Color: "#6B7280", MarkerColor: "#9CA3AF", Shape: ShapeCircle},
	{enums.DispositionInsuranceRestoration, "Not Interested"}:          {Icon: "x-circle", Color: "#EF4444", MarkerColor: "#F87171", Shape: ShapeCircle},
	{enums.DispositionInsuranceRestoration, "Already Replaced"}:        {Icon: "check-circle", Color: "#10B981", MarkerColor: "#34D399", Shape: ShapeCircle},

	{enums.DispositionSolarReplacement, "Contact Made"}:   {Icon: "sun", Color: "#3B82F6", MarkerColor: "#60A5FA", Shape: ShapeCircle},
	{enums.DispositionSolarReplacement, "Lead"}:           {Icon: "zap", Color: "#F59E0B", MarkerColor: "#FBBF24", Shape: ShapeSquare},
	{enums.DispositionSolarReplacement, "Not Home"}:       {Icon: "home", Color: "#6B7280", MarkerColor: "#9CA3AF", Shape: ShapeCircle},
	{enums.DispositionSolarReplacement, "Not Interested"}: {Icon: "x-circle", Color: "#EF4444", MarkerColor: "#F87171", Shape: ShapeCircle},

	{enums.DispositionCommunitySolar, "Contact Made"}:            {Icon: "users", Color: "#3B82F6", MarkerColor: "#60A5FA", Shape: ShapeCircle},
	{enums.DispositionCommunitySolar, "Lead"}:                    {Icon: "briefcase", Color: "#F59E0B", MarkerColor: "#FBBF24", Shape: ShapeSquare},
	{enums.DispositionCommunitySolar, "Got Utility Bill (Lead)"}: {Icon: "briefcase", Color: "#F59E0B", MarkerColor: "#FBBF24", Shape: ShapeSquare},
	{enums.DispositionCommunitySolar, "Not Home"}:                {Icon: "home", Color: "#6B7280", MarkerColor: "#9CA3AF", Shape: ShapeCircle},
	{enums.DispositionCommunitySolar, "Not Interested"}:          {Icon: "x-circle", Color: "#EF4444", MarkerColor: "#F87171", Shape: ShapeCircle},
}

// fallbackIconByDisposition keeps each category's identity icon on
// unrecognized statuses, matching the map's historical behavior.
var fallbackIconByDisposition = map[enums.DispositionType]string{
	enums.DispositionInsuranceRestoration: "home",
	enums.DispositionSolarReplacement:     "sun",
	enums.DispositionCommunitySolar:       "users",
}

// ResolveStyle maps a (category, status) pair to its marker style. An
// absent or unrecognized status resolves to the neutral default, tinted
// with the category's identity icon where one is defined.
func ResolveStyle(disposition enums.DispositionType, status string) Style {
	if status == "" {
		status = StatusNotKnocked
	}
	if style, ok := styleTable[styleKey{disposition, status}]; ok {
		return style
	}
	style := defaultStyle
	if icon, ok := fallbackIconByDisposition[disposition]; ok {
		style.Icon = icon
	}
	return style
}
