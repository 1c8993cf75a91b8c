// Package report prints the storefront and archive comparison between a
// product and one of its localized editions.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/editiondiff/internal/archive"
	"github.com/lepinkainen/editiondiff/internal/storefront"
)

// KeyFields are the storefront fields shown side by side.
var KeyFields = []string{
	"work_name",
	"work_name_masked",
	"work_image",
	"dl_count",
	"price",
	"rate_average_2dp",
	"rate_count",
}

// ProductSource fetches storefront product information.
type ProductSource interface {
	ProductInfo(ctx context.Context, code string) (*storefront.ProductInfo, error)
}

// ArchiveSource summarizes archive search results.
type ArchiveSource interface {
	Summarize(ctx context.Context, keyword string) (archive.Summary, error)
}

// Reporter writes line-oriented reports to out.
type Reporter struct {
	out      io.Writer
	products ProductSource
	archive  ArchiveSource
	heading  lipgloss.Style
}

// New creates a Reporter. Headings are only styled when out is a terminal.
func New(out io.Writer, products ProductSource, archive ArchiveSource) *Reporter {
	renderer := lipgloss.NewRenderer(out)
	return &Reporter{
		out:      out,
		products: products,
		archive:  archive,
		heading:  renderer.NewStyle().Bold(true),
	}
}

// Compare prints the full comparison between code and its lang edition.
// Storefront and archive search failures abort the report.
func (r *Reporter) Compare(ctx context.Context, code, lang string) error {
	base := storefront.NormalizeCode(code)
	if base == "" {
		return errors.New("product code is empty")
	}
	lang = strings.ToUpper(strings.TrimSpace(lang))

	r.printf("BASE_RJ=%s\n", base)

	baseInfo, err := r.products.ProductInfo(ctx, base)
	if err != nil {
		return err
	}
	editions := storefront.LanguageEditions(baseInfo.Work())
	r.printEditions(editions)

	localized := editions[lang].WorkNo
	if localized != "" {
		localInfo, err := r.products.ProductInfo(ctx, localized)
		if err != nil {
			return err
		}
		r.printKeyFields(lang, baseInfo.Work(), localInfo.Work())
	} else {
		r.section(fmt.Sprintf("DLsite: no %s edition found", lang))
	}

	r.section("ASMR ONE search+tracks:")
	baseSummary, err := r.summarize(ctx, base)
	if err != nil {
		return err
	}
	if localized == "" {
		return nil
	}

	localSummary, err := r.summarize(ctx, localized)
	if err != nil {
		return err
	}
	if baseSummary.Hit && localSummary.Hit {
		tag := sideLabel(lang)
		r.section(fmt.Sprintf("ASMR ONE: base vs %s summary:", tag))
		r.printf("  base_source_id=%s %s_source_id=%s\n", baseSummary.SourceID, tag, localSummary.SourceID)
		r.printf("  base_leaf_count=%d %s_leaf_count=%d\n", baseSummary.LeafCount, tag, localSummary.LeafCount)
	}
	return nil
}

// Editions prints only the language edition table of code.
func (r *Reporter) Editions(ctx context.Context, code string) error {
	base := storefront.NormalizeCode(code)
	if base == "" {
		return errors.New("product code is empty")
	}

	info, err := r.products.ProductInfo(ctx, base)
	if err != nil {
		return err
	}

	r.printf("BASE_RJ=%s\n", base)
	r.printEditions(storefront.LanguageEditions(info.Work()))
	return nil
}

func (r *Reporter) printEditions(editions map[string]storefront.Edition) {
	r.section("DLsite dl_count_items:")
	for _, e := range storefront.SortEditions(editions) {
		r.printf("  %s: %s (%s)\n", e.Lang, e.WorkNo, e.Label)
	}
}

func (r *Reporter) printKeyFields(lang string, base, localized storefront.Work) {
	tag := sideLabel(lang)
	r.section("DLsite key fields:")
	for _, key := range KeyFields {
		r.printf("  %s:\n", key)
		r.printf("    base=%s\n", base.Display(key))
		r.printf("    %s=%s\n", tag, localized.Display(key))
	}
}

func (r *Reporter) summarize(ctx context.Context, keyword string) (archive.Summary, error) {
	s, err := r.archive.Summarize(ctx, keyword)
	if err != nil {
		return s, err
	}

	r.printf("  keyword=%s hit=%t id=%s source_id=%s\n", keyword, s.Hit, orDash(s.ID), orDash(s.SourceID))
	if s.Hit {
		r.printf("    title=%s\n", s.Title)
		r.printf("    leaf_count=%d samples=%q\n", s.LeafCount, s.LeafSamples)
	}
	return s, nil
}

// section prints a blank line and a heading.
func (r *Reporter) section(title string) {
	r.printf("\n%s\n", r.heading.Render(title))
}

func (r *Reporter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// sideLabel names the localized column, e.g. CHI_HANS -> hans.
func sideLabel(lang string) string {
	if i := strings.LastIndex(lang, "_"); i >= 0 && i < len(lang)-1 {
		lang = lang[i+1:]
	}
	return strings.ToLower(lang)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
