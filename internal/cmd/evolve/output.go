package evolve

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/status"
	"gopkg.in/yaml.v3"

	apperrors "github.com/louisbranch/evolving.space/internal/platform/errors"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/arbiter"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/genome"
)

// emit writes v as JSON or YAML, or calls text for the text format.
func (c *cli) emit(v any, text func()) error {
	return c.emitTo(c.stdout, v, text)
}

func (c *cli) emitTo(w io.Writer, v any, text func()) error {
	switch c.format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		if text != nil {
			text()
		}
		return nil
	}
}

// errorReport is the structured form of a failed command, read back from
// the gRPC status the error maps to.
type errorReport struct {
	Code     string            `json:"code" yaml:"code"`
	Status   string            `json:"status" yaml:"status"`
	Message  string            `json:"message" yaml:"message"`
	Locale   string            `json:"locale,omitempty" yaml:"locale,omitempty"`
	Detail   string            `json:"detail,omitempty" yaml:"detail,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

func newErrorReport(err error, locale string) errorReport {
	st := status.Convert(apperrors.HandleError(err, locale))
	report := errorReport{
		Code:    string(apperrors.CodeUnknown),
		Status:  st.Code().String(),
		Message: st.Message(),
	}
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			report.Code = d.GetReason()
			report.Metadata = d.GetMetadata()
		case *errdetails.LocalizedMessage:
			report.Detail = st.Message()
			report.Locale = d.GetLocale()
			report.Message = d.GetMessage()
		}
	}
	return report
}

func (c *cli) recorded(evt event.Event, g genome.Genome) {
	c.text("cli.event.recorded", evt.LineageID, evt.Seq, evt.Kind, g.Generation, g.Checksum)
}

// traits prints a genome header and one aligned row per trait.
func (c *cli) traits(g genome.Genome, values []genome.TraitValue) {
	c.text("cli.genome.header", g.SchemaVersion, g.Generation, g.Checksum)
	w := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	for _, trait := range values {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", trait.Name, trait.Kind, trait.Value)
	}
	_ = w.Flush()
}

func (c *cli) outcome(out arbiter.Outcome) {
	parts := []string{string(out.Kind)}
	if out.Name != "" {
		parts = append(parts, out.Name)
	}
	parts = append(parts, "success="+strconv.FormatBool(out.Success), "total="+strconv.Itoa(out.Total))
	if len(out.Rolls) > 0 {
		rolls := make([]string, len(out.Rolls))
		for i, roll := range out.Rolls {
			rolls[i] = strconv.Itoa(roll)
		}
		parts = append(parts, "rolls="+strings.Join(rolls, ","))
	}
	if out.Winner >= 0 {
		parts = append(parts, "winner="+strconv.Itoa(out.Winner))
	}
	if out.CriticalSuccess {
		parts = append(parts, "critical-success")
	}
	if out.CriticalFailure {
		parts = append(parts, "critical-failure")
	}
	fmt.Fprintln(c.stdout, strings.Join(parts, " "))
}
