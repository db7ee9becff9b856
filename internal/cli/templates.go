package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/nlq/internal/catalog"
	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/knowledge"
)

// TemplateColumn describes one column of a listed template.
type TemplateColumn struct {
	Key      string   `json:"key"`
	Alias    string   `json:"alias"`
	Keywords []string `json:"keywords"`
	Numeric  bool     `json:"numeric,omitempty"`
	Temporal bool     `json:"temporal,omitempty"`
}

// TemplateInfo describes one report template.
type TemplateInfo struct {
	Name     string           `json:"name"`
	Domain   string           `json:"domain"`
	Keywords []string         `json:"keywords"`
	Columns  []TemplateColumn `json:"columns"`
}

// TemplatesOutput is the payload of the templates command.
type TemplatesOutput struct {
	Templates []TemplateInfo `json:"templates"`
}

// RenderText prints one block per template.
func (o *TemplatesOutput) RenderText(w io.Writer) error {
	for i, t := range o.Templates {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s [%s]\n", t.Name, t.Domain)
		fmt.Fprintf(w, "  keywords: %s\n", strings.Join(t.Keywords, ", "))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, c := range t.Columns {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", c.Key, c.Alias, columnKind(c), strings.Join(c.Keywords, ", "))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func columnKind(c TemplateColumn) string {
	switch {
	case c.Numeric:
		return "numeric"
	case c.Temporal:
		return "date"
	default:
		return "text"
	}
}

// NewTemplatesCommand creates the templates command.
func NewTemplatesCommand(rootOpts *RootOptions) *cobra.Command {
	var domain string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List the report templates and their columns",
		Long: `List the report templates known to the compiler, with the keywords
that select them and the columns a request can refer to.

Examples:
  nlq templates
  nlq templates --domain schaden --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			out, err := listTemplates(domain)
			if err != nil {
				return f.Fail(err, ErrCodeUsage, ExitCommandError, "")
			}
			return f.Success(out, "")
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "only list templates of this domain (cover or schaden)")

	return cmd
}

func listTemplates(domain string) (*TemplatesOutput, error) {
	reg, err := knowledge.Default()
	if err != nil {
		return nil, err
	}

	templates := reg.Templates()
	if domain != "" {
		d := catalog.Domain(strings.ToUpper(domain))
		if !d.Valid() {
			return nil, errors.WithHint(errors.Newf("unknown domain %q", domain), "use cover or schaden")
		}
		templates = reg.ForDomain(d)
	}

	out := &TemplatesOutput{Templates: make([]TemplateInfo, 0, len(templates))}
	for _, t := range templates {
		info := TemplateInfo{
			Name:     t.Name(),
			Domain:   string(t.Domain()),
			Keywords: t.Keywords(),
		}
		for _, c := range t.Columns() {
			info.Columns = append(info.Columns, TemplateColumn{
				Key:      c.Key(),
				Alias:    c.Alias(),
				Keywords: c.Keywords(),
				Numeric:  c.IsNumeric(),
				Temporal: c.IsTemporal(),
			})
		}
		out.Templates = append(out.Templates, info)
	}
	return out, nil
}
