package models

// Species is a frog or toad whose call is rated on the advanced survey
type Species struct {
	Name      string
	FieldName string
}

// Frogs is the species catalogue, alphabetical by common name
var Frogs = []Species{
	{Name: "American Toad", FieldName: "americantoad"},
	{Name: "Bullfrog", FieldName: "bullfrog"},
	{Name: "Cope's Gray Treefrog", FieldName: "copesgraytreefrog"},
	{Name: "Eastern Gray Treefrog", FieldName: "easterngraytreefrog"},
	{Name: "Fowler's Toad", FieldName: "fowlerstoad"},
	{Name: "Green Frog", FieldName: "greenfrog"},
	{Name: "Mink Frog", FieldName: "minkfrog"},
	{Name: "Northern Cricket Frog", FieldName: "northerncricketfrog"},
	{Name: "Northern Leopard Frog", FieldName: "northernleopardfrog"},
	{Name: "Pickerel Frog", FieldName: "pickerelfrog"},
	{Name: "Spring Peeper", FieldName: "springpeeper"},
	{Name: "Western Chorus Frog", FieldName: "westernchorusfrog"},
	{Name: "Wood Frog", FieldName: "woodfrog"},
}

// SpeciesByField looks up a species by its survey field name
func SpeciesByField(fieldName string) (Species, bool) {
	for _, s := range Frogs {
		if s.FieldName == fieldName {
			return s, true
		}
	}
	return Species{}, false
}
