// Package catalog holds the immutable exam product list. Entries are fixed
// at deploy time; there is no write path.
package catalog

// Exam describes one offered exam product. Price is in centavos to avoid
// floating-point currency.
type Exam struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	PriceCentavos int64  `json:"price_centavos"`
	Duration      string `json:"duration"`
}

var exams = []Exam{
	{
		ID:            "cnh",
		Title:         "Toxicológico para CNH",
		Description:   "Exame completo para renovação ou obtenção da CNH",
		PriceCentavos: 19500,
		Duration:      "30 minutos",
	},
	{
		ID:            "ocupacional",
		Title:         "Toxicológico Ocupacional",
		Description:   "Exame para empresas e processos seletivos",
		PriceCentavos: 22000,
		Duration:      "45 minutos",
	},
	{
		ID:            "completo",
		Title:         "Toxicológico Completo",
		Description:   "Análise expandida para acompanhamento médico",
		PriceCentavos: 35000,
		Duration:      "1 hora",
	},
}

// List returns a copy so callers cannot mutate the catalog.
func List() []Exam {
	out := make([]Exam, len(exams))
	copy(out, exams)
	return out
}

func Lookup(id string) (Exam, bool) {
	for _, e := range exams {
		if e.ID == id {
			return e, true
		}
	}
	return Exam{}, false
}
