package domain

import "math"

// Field is one attribute of the identity document schema.
type Field struct {
	Key   string
	Label string
}

// FieldValue is a field together with the value read for it.
type FieldValue struct {
	Field
	Value  string
	Filled bool
}

// CaptureFieldSet is the ordered document schema.
type CaptureFieldSet []Field

// KTPFields is the schema of the Indonesian identity card.
var KTPFields = CaptureFieldSet{
	{Key: "nik", Label: "NIK"},
	{Key: "nama", Label: "Nama"},
	{Key: "tempat_lahir", Label: "Tempat Lahir"},
	{Key: "tgl_lahir", Label: "Tgl Lahir"},
	{Key: "jenis_kelamin", Label: "Jenis Kelamin"},
	{Key: "gol_darah", Label: "Gol. Darah"},
	{Key: "alamat", Label: "Alamat"},
	{Key: "rt_rw", Label: "RT/RW"},
	{Key: "kelurahan", Label: "Kelurahan"},
	{Key: "kecamatan", Label: "Kecamatan"},
	{Key: "agama", Label: "Agama"},
	{Key: "status_perkawinan", Label: "Status"},
	{Key: "pekerjaan", Label: "Pekerjaan"},
	{Key: "kewarganegaraan", Label: "WN"},
	{Key: "berlaku_hingga", Label: "Berlaku Hingga"},
}

// Completion is the result of evaluating document data against a field set.
type Completion struct {
	Values  []FieldValue
	Filled  int
	Total   int
	Percent int
}

// Evaluate matches data against the schema in order. A field is filled when
// its value is a non-empty string.
func (s CaptureFieldSet) Evaluate(data map[string]string) Completion {
	c := Completion{
		Values: make([]FieldValue, 0, len(s)),
		Total:  len(s),
	}
	for _, f := range s {
		v := data[f.Key]
		filled := v != ""
		if filled {
			c.Filled++
		}
		c.Values = append(c.Values, FieldValue{Field: f, Value: v, Filled: filled})
	}
	if c.Total > 0 {
		c.Percent = int(math.Round(float64(c.Filled) / float64(c.Total) * 100))
	}
	return c
}
