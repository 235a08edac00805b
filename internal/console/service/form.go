package service

import "github.com/xela07ax/kpi-dashboard/internal/domain"

// SectorCatalog отдает эталонный список секторов и показателей (connectors.SampleConnector)
type SectorCatalog interface {
	Sectors() []domain.Sector
}

type FormSector struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Indicators []FormField `json:"indicators"`
}

type FormField struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Format      domain.Format `json:"format"`
	Unit        string        `json:"unit,omitempty"`
	IsMandatory bool          `json:"is_mandatory"`
}

// FormService - шаблон формы ввода: какие показатели и в каком формате заполнять по сектору
type FormService struct {
	catalog SectorCatalog
}

func NewFormService(catalog SectorCatalog) *FormService {
	return &FormService{catalog: catalog}
}

func (s *FormService) Sectors() []FormSector {
	sectors := s.catalog.Sectors()
	out := make([]FormSector, 0, len(sectors))
	for _, sec := range sectors {
		fs := FormSector{ID: sec.ID, Name: sec.Name, Indicators: make([]FormField, 0, len(sec.Indicators))}
		for _, ind := range sec.Indicators {
			fs.Indicators = append(fs.Indicators, FormField{
				ID:          ind.ID,
				Name:        ind.Name,
				Format:      ind.Format,
				Unit:        ind.Unit,
				IsMandatory: ind.IsMandatory,
			})
		}
		out = append(out, fs)
	}
	return out
}
