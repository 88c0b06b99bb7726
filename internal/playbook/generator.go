package playbook

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/persona-cli/internal/model"
)

// Decision categories shared by the catalog tables.
const (
	catAutomation  = "automation"
	catPerformance = "performance"
	catIntegration = "integration"
	catVisibility  = "visibility"
	catCost        = "cost"
	catComplexity  = "complexity"
	catRisk        = "risk"
	catIncumbent   = "incumbent"
	catTechnical   = "technical"
)

// painCategories maps pain-point keywords to value proposition categories.
var painCategories = map[string]string{
	"manual process":  catAutomation,
	"processo manual": catAutomation,
	"spreadsheet":     catAutomation,
	"planilha":        catAutomation,
	"rework":          catAutomation,
	"retrabalho":      catAutomation,
	"slow":            catPerformance,
	"lento":           catPerformance,
	"downtime":        catPerformance,
	"integration":     catIntegration,
	"integração":      catIntegration,
	"visibility":      catVisibility,
	"visibilidade":    catVisibility,
	"stockout":        catVisibility,
	"ruptura":         catVisibility,
	"cost overrun":    catCost,
	"custo alto":      catCost,
}

// objectionCategories maps objection keywords to service package categories.
var objectionCategories = map[string]string{
	"too expensive":    catCost,
	"muito caro":       catCost,
	"no budget":        catCost,
	"sem orçamento":    catCost,
	"not a priority":   catCost,
	"não é prioridade": catCost,
	"too complex":      catComplexity,
	"complexo demais":  catComplexity,
	"risk":             catRisk,
	"risco":            catRisk,
	"vendor lock-in":   catRisk,
	"locked into":      catIncumbent,
	"contrato vigente": catIncumbent,
	"already have":     catIncumbent,
	"já temos":         catIncumbent,
}

// Generator produces playbooks from persona vectors. It performs no I/O.
type Generator struct {
	catalog *Catalog
	now     func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the refresh timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a Generator over catalog.
func NewGenerator(catalog *Catalog, opts ...Option) *Generator {
	g := &Generator{catalog: catalog, now: time.Now}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Catalog returns the generator's vendor catalog.
func (g *Generator) Catalog() *Catalog { return g.catalog }

// Generate builds the six-part playbook for persona and vendor. Unknown
// vendors use the generic taxonomy. Every field is non-empty for any persona.
func (g *Generator) Generate(persona model.PersonaVector, vendor string) (model.Playbook, error) {
	id := NormalizeVendor(vendor)
	if id == "" {
		return model.Playbook{}, eris.Wrap(model.ErrInvalidInput, "playbook: vendor is required")
	}

	v, known := g.catalog.Vendor(id)
	name := v.Name
	if !known {
		name = strings.TrimSpace(vendor)
		zap.L().Debug("playbook: unknown vendor, using generic catalog", zap.String("vendor", id))
	}

	return model.Playbook{
		PersonID:         persona.PersonID,
		Vendor:           id,
		Opening:          opening(persona),
		ValueProposition: g.valueProposition(v, persona),
		CaseReference:    g.caseReference(v, persona),
		CallToAction:     callToAction(persona, name),
		ProductFit:       g.productFit(v, persona),
		ServicePackages:  g.servicePackages(v, persona),
		RefreshedAt:      g.now().UTC(),
	}, nil
}

func opening(p model.PersonaVector) string {
	switch {
	case p.HasTopic("ERP"):
		return "Your recent posts about ERP stood out, especially how closely you follow what happens after go-live."
	case p.HasTopic("Supply Chain"):
		return "I have been following what you share about supply chain, and the way you connect planning to the warehouse floor caught my attention."
	case len(p.Topics) > 0 && p.Topics[0] != model.TopicGeneral:
		return fmt.Sprintf("I noticed %s comes up often in what you share, and it is a subject we work on every day.", p.Topics[0])
	default:
		return "I came across your recent activity and thought a short note would be more useful than a generic pitch."
	}
}

func (g *Generator) valueProposition(v *Vendor, p model.PersonaVector) string {
	vp := func(x *Vendor) map[string]string { return x.ValuePropositions }
	for _, pain := range p.PainPoints {
		cat, ok := painCategories[pain]
		if !ok {
			continue
		}
		if s := g.catalog.text(v, vp, cat); s != "" {
			return s
		}
	}
	return g.catalog.text(v, vp, defaultKey)
}

func (g *Generator) caseReference(v *Vendor, p model.PersonaVector) string {
	cases := func(x *Vendor) map[string]string { return x.Cases }
	for _, t := range p.Topics {
		if s := g.catalog.text(v, cases, t); s != "" {
			return s
		}
	}
	return g.catalog.text(v, cases, defaultKey)
}

func callToAction(p model.PersonaVector, vendor string) string {
	var cta string
	switch p.Tone {
	case model.ToneOptimistic:
		cta = fmt.Sprintf("Would you be open to a 20-minute call to see how %s could build on the momentum you describe?", vendor)
	case model.ToneCritical:
		cta = fmt.Sprintf("Could I send you a one-page diagnostic of where %s has fixed the issues you raised, so you can judge for yourself?", vendor)
	case model.ToneNeutral:
		cta = fmt.Sprintf("If useful, I can share a short comparison of how teams like yours use %s.", vendor)
	default:
		cta = fmt.Sprintf("Would a brief conversation about your priorities for this year be worthwhile? %s can adapt to where you are.", vendor)
	}
	if len(p.ActivityWindows) > 0 && len(p.ActivityWindows[0].Hours) > 0 {
		w := p.ActivityWindows[0]
		cta += fmt.Sprintf(" %s around %02d:00 UTC seems to suit your schedule.", w.Weekday, w.Hours[0])
	}
	return cta
}

// productFit crosses persona topics with the vendor's own taxonomy. The
// generic taxonomy is used only when the vendor is itself generic or has no
// match at all.
func (g *Generator) productFit(v *Vendor, p model.PersonaVector) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range p.Topics {
		for _, item := range v.Products[t] {
			if !seen[item] {
				seen[item] = true
				out = append(out, item)
			}
		}
	}
	if len(out) == 0 {
		out = g.catalog.list(v, func(x *Vendor) map[string][]string { return x.Products }, defaultKey)
	}
	return out
}

func (g *Generator) servicePackages(v *Vendor, p model.PersonaVector) []string {
	var cats []string
	for _, o := range p.Objections {
		if cat, ok := objectionCategories[o]; ok {
			cats = append(cats, cat)
		}
	}
	if p.Style == model.StyleTechnical {
		cats = append(cats, catTechnical)
	}

	var out []string
	seen := make(map[string]bool)
	for _, cat := range cats {
		for _, item := range v.Packages[cat] {
			if !seen[item] {
				seen[item] = true
				out = append(out, item)
			}
		}
	}
	if len(out) == 0 {
		out = g.catalog.list(v, func(x *Vendor) map[string][]string { return x.Packages }, defaultKey)
	}
	return out
}
