package charts

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Jray937/TrustMeBro/internal/domain"
)

const (
	chartWidth  = 8 * vg.Inch
	chartHeight = 4.5 * vg.Inch
	dateLayout  = "2006-01-02"
)

// Renderer рисует график дневных закрытий в PNG для отправки в чат
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderClose строит линию закрытий по барам. Бары должны быть
// отсортированы по возрастанию даты.
func (r *Renderer) RenderClose(ticker string, bars []domain.OHLCBar) ([]byte, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars to render for %s", ticker)
	}

	pts := make(plotter.XYs, 0, len(bars))
	for _, b := range bars {
		t, err := parseBarDate(b.Date)
		if err != nil {
			// Кривую дату пропускаем, остальные точки рисуем
			continue
		}
		pts = append(pts, plotter.XY{X: float64(t.Unix()), Y: b.Close})
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("no parseable bars for %s", ticker)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - закрытия за 30 дней", strings.ToUpper(ticker))
	p.X.Label.Text = "Дата"
	p.Y.Label.Text = "Цена, $"
	p.X.Tick.Marker = plot.TimeTicks{Format: dateLayout}
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("build line: %w", err)
	}
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add(strings.ToUpper(ticker), line)
	p.Legend.Top = true

	var buf bytes.Buffer
	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

// parseBarDate терпит и голую дату, и полный RFC3339 от крипто-фида
func parseBarDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(dateLayout, s)
}
