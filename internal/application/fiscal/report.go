package fiscal

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jhoicas/motor-fiscal/internal/application/dto"
	fiscaldom "github.com/jhoicas/motor-fiscal/internal/domain/fiscal"
)

const reportDateLayout = "02/01/2006 15:04:05"

// renderReportText versión legible del reporte para el equipo fiscal, en pt-BR.
func renderReportText(r *dto.AuditReport) string {
	p := message.NewPrinter(language.BrazilianPortuguese)
	var b strings.Builder

	p.Fprintf(&b, "Auditoria fiscal do produto %s (UF %s)\n", r.ProductCode, r.State)
	p.Fprintf(&b, "Relatório %s gerado em %s UTC\n", r.ID, r.GeneratedAt.Format(reportDateLayout))
	if r.RuleCode != 0 {
		p.Fprintf(&b, "Regra ICMS %d (origem: %s)\n", r.RuleCode, r.RuleStep)
	}

	if r.Error != "" {
		p.Fprintf(&b, "Auditoria não concluída: %s\n", r.Error)
		return b.String()
	}
	if r.Total == 0 {
		b.WriteString("Nenhuma inconsistência encontrada.\n")
		return b.String()
	}

	p.Fprintf(&b, "%d inconsistência(s); severidade máxima: %s\n", r.Total, r.MaxSeverity)
	for _, sev := range fiscaldom.Severities {
		list := r.BySeverity[string(sev)]
		if len(list) == 0 {
			continue
		}
		p.Fprintf(&b, "\n[%s] %d\n", sev, len(list))
		for _, inc := range list {
			p.Fprintf(&b, "- %s: %s\n", inc.Type, inc.Description)
			p.Fprintf(&b, "  Recomendação: %s\n", inc.Recommendation)
		}
	}

	if len(r.Degradations) > 0 {
		b.WriteString("\nDados incompletos:\n")
		for _, d := range r.Degradations {
			p.Fprintf(&b, "- %s\n", d)
		}
	}
	return b.String()
}
