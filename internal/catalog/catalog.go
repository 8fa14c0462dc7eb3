// Package catalog imports the yearly form templates from YAML.
//
// A catalog file looks like:
//
//	year: 2025
//	starts_on: 2025-03-01
//	ends_on: 2025-04-30
//	forms:
//	  - type: autoavaliação
//	    groups:
//	      - name: Delivery
//	        weight: 60
//	        questions:
//	          - text: Meets deadlines
//	            weight: 100
//
// Form types accept the canonical codes and the legacy labels understood by
// models.ParseEvaluationType. A form may override starts_on and ends_on.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"evaluations/models"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

type Catalog struct {
	Year     int    `yaml:"year"`
	StartsOn string `yaml:"starts_on"`
	EndsOn   string `yaml:"ends_on"`
	Forms    []Form `yaml:"forms"`
}

type Form struct {
	Type     string  `yaml:"type"`
	StartsOn string  `yaml:"starts_on"`
	EndsOn   string  `yaml:"ends_on"`
	Groups   []Group `yaml:"groups"`
}

type Group struct {
	Name      string     `yaml:"name"`
	Weight    float64    `yaml:"weight"`
	Questions []Question `yaml:"questions"`
}

type Question struct {
	Text   string  `yaml:"text"`
	Weight float64 `yaml:"weight"`
}

// Parse decodes a catalog and converts it into forms ready to store.
func Parse(data []byte) ([]models.Form, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("catalog: payload is empty")
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return c.Build()
}

// Load reads and parses the catalog at path.
func Load(path string) ([]models.Form, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	forms, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return forms, nil
}

func parseDate(field, value, fallback string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		value = fallback
	}
	d, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("catalog: %s: want YYYY-MM-DD, got %q", field, value)
	}
	return d, nil
}

// Build validates c and returns one form per entry, positions following
// file order.
func (c Catalog) Build() ([]models.Form, error) {
	if c.Year <= 0 {
		return nil, fmt.Errorf("catalog: year must be positive, got %d", c.Year)
	}
	if len(c.Forms) == 0 {
		return nil, fmt.Errorf("catalog: no forms for %d", c.Year)
	}

	seen := map[models.EvaluationType]bool{}
	forms := make([]models.Form, 0, len(c.Forms))
	for i, in := range c.Forms {
		typ, err := models.ParseEvaluationType(in.Type)
		if err != nil {
			return nil, fmt.Errorf("catalog: forms[%d]: %w", i, err)
		}
		if seen[typ] {
			return nil, fmt.Errorf("catalog: forms[%d]: duplicate type %s", i, typ)
		}
		seen[typ] = true

		starts, err := parseDate(fmt.Sprintf("forms[%d].starts_on", i), in.StartsOn, c.StartsOn)
		if err != nil {
			return nil, err
		}
		ends, err := parseDate(fmt.Sprintf("forms[%d].ends_on", i), in.EndsOn, c.EndsOn)
		if err != nil {
			return nil, err
		}
		if ends.Before(starts) {
			return nil, fmt.Errorf("catalog: forms[%d]: ends_on before starts_on", i)
		}

		f := models.Form{Year: c.Year, Type: typ, StartsOn: starts, EndsOn: ends}
		for gi, g := range in.Groups {
			if g.Weight < 0 {
				return nil, fmt.Errorf("catalog: %s group %q: negative weight", typ, g.Name)
			}
			group := models.GroupQuestion{Name: g.Name, Position: gi + 1, WeightPct: g.Weight}
			for qi, q := range g.Questions {
				if strings.TrimSpace(q.Text) == "" {
					return nil, fmt.Errorf("catalog: %s group %q: question %d has no text", typ, g.Name, qi+1)
				}
				if q.Weight < 0 {
					return nil, fmt.Errorf("catalog: %s question %q: negative weight", typ, q.Text)
				}
				group.Questions = append(group.Questions, models.Question{Text: q.Text, Position: qi + 1, WeightPct: q.Weight})
			}
			f.Groups = append(f.Groups, group)
		}
		forms = append(forms, f)
	}
	return forms, nil
}

type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	UpsertForm(ctx context.Context, f *models.Form) error
}

// Import stores forms in one transaction. Existing templates with the same
// year and type are updated in place.
func Import(ctx context.Context, store Store, forms []models.Form) error {
	return store.InTx(ctx, func(ctx context.Context) error {
		for i := range forms {
			if err := store.UpsertForm(ctx, &forms[i]); err != nil {
				return fmt.Errorf("import %d/%s: %w", forms[i].Year, forms[i].Type, err)
			}
		}
		return nil
	})
}
