package render

import (
	"html/template"
	"io"
)

// NoDataNotice is shown in place of a chart whose filtered data is empty.
const NoDataNotice = "No data found for the selected filters."

// SeasonOption is one checkbox in the season filter.
type SeasonOption struct {
	Code    int
	Label   string
	Checked bool
}

// PageData is everything the dashboard page template needs.
type PageData struct {
	Seasons       []SeasonOption
	Start         string
	End           string
	MinDate       string
	MaxDate       string
	Query         template.URL
	Error         string
	SeasonsNoData bool
	SamplesNoData bool
	TotalRentals  int
	DailyRecords  int
	HourlyRecords int
}

var pageTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Bike Rental Dashboard</title>
<style>
body { font-family: sans-serif; margin: 0; display: flex; }
aside { width: 240px; padding: 1rem; background: #f4f4f6; min-height: 100vh; }
main { flex: 1; padding: 1rem 2rem; }
.notice { padding: .75rem 1rem; background: #fff4ce; border: 1px solid #e6c200; }
.error { padding: .75rem 1rem; background: #fde7e9; border: 1px solid #d13438; }
label { display: block; margin: .25rem 0; }
</style>
</head>
<body>
<aside>
<h2>Filter</h2>
<form method="get" action="/">
<fieldset>
<legend>Season</legend>
{{range .Seasons}}<label><input type="checkbox" name="season" value="{{.Code}}"{{if .Checked}} checked{{end}}> {{.Label}}</label>
{{end}}</fieldset>
<fieldset>
<legend>Date range</legend>
<label>From <input type="date" name="start" value="{{.Start}}" min="{{.MinDate}}" max="{{.MaxDate}}"></label>
<label>To <input type="date" name="end" value="{{.End}}" min="{{.MinDate}}" max="{{.MaxDate}}"></label>
</fieldset>
<p><button type="submit">Apply</button></p>
</form>
<p><a href="/export.xlsx?{{.Query}}">Download filtered data (XLSX)</a></p>
</aside>
<main>
<h1>Bike Rental Analysis Dashboard</h1>
<h2>Business Questions</h2>
<ol>
<li>How are bike rentals distributed across seasons?</li>
<li>How does temperature relate to the number of bike rentals?</li>
</ol>
{{if .Error}}<p class="error">{{.Error}}</p>
{{else}}<p>{{.DailyRecords}} days and {{.HourlyRecords}} hours selected, {{.TotalRentals}} rentals in total.</p>
<h2>Data Visualization</h2>
<h3>Bike Rentals by Season</h3>
{{if .SeasonsNoData}}<p class="notice">` + NoDataNotice + `</p>
{{else}}<img src="/charts/seasons.png?{{.Query}}" alt="Bike rentals by season" width="800" height="600">
{{end}}
<h3>Temperature vs Bike Rentals</h3>
{{if .SamplesNoData}}<p class="notice">` + NoDataNotice + `</p>
{{else}}<img src="/charts/temperature.png?{{.Query}}" alt="Temperature vs bike rentals" width="800" height="600">
{{end}}{{end}}
</main>
</body>
</html>
`))

// Page writes the dashboard HTML.
func Page(w io.Writer, data PageData) error {
	return pageTemplate.Execute(w, data)
}
