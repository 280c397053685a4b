package export

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Spec.ProductName}} design packet</title>
<style>
body{font-family:system-ui,sans-serif;max-width:960px;margin:2rem auto;padding:0 1rem;color:#1d1d1f}
table{border-collapse:collapse;width:100%}
th,td{border:1px solid #ddd;padding:.4rem;text-align:left;vertical-align:top}
figure{margin:1rem 0}
img{max-width:100%;border:1px solid #eee}
pre{background:#f6f8fa;padding:1rem;overflow:auto}
.missing{color:#888;font-style:italic}
</style>
</head>
<body>
<header>
<h1>{{.Spec.ProductName}}</h1>
<p>Product type: <strong>{{.Spec.ProductType}}</strong></p>
</header>

<section id="summary">
<h2>Summary</h2>
{{.Summary}}
</section>

<section id="use-cases">
<h2>Use cases</h2>
{{if .Spec.UseCases}}<ul>{{range .Spec.UseCases}}<li>{{.}}</li>{{end}}</ul>{{else}}<p class="missing">None listed.</p>{{end}}
</section>

<section id="requirements">
<h2>Requirements</h2>
{{if .Spec.Requirements}}<ul>{{range .Spec.Requirements}}<li>{{.}}</li>{{end}}</ul>{{else}}<p class="missing">None listed.</p>{{end}}
</section>

<section id="constraints">
<h2>Constraints</h2>
<table>
{{range .Constraints}}<tr><th>{{.Label}}</th><td>{{deref .Value}}</td></tr>
{{end}}</table>
</section>

<section id="parts">
<h2>Parts</h2>
{{if .Spec.PartsList}}<table>
<tr><th>Name</th><th>Description</th><th>Dimensions</th><th>Material / technology</th><th>Qty</th><th>Role</th></tr>
{{range .Spec.PartsList}}<tr><td>{{.Name}}</td><td>{{.Description}}</td><td>{{deref .EstimatedDimensions}}</td><td>{{deref .MaterialOrTechnology}}</td><td>{{qty .Quantity}}</td><td>{{deref .Role}}</td></tr>
{{end}}</table>{{else}}<p class="missing">No parts listed.</p>{{end}}
</section>

<section id="diagrams">
<h2>Diagrams</h2>
{{if .Images}}{{range .Images}}<figure>
<img src="{{.Src}}" alt="{{.Title}}">
<figcaption>{{.Label}}: {{.Title}}</figcaption>
</figure>
{{end}}{{else}}<p class="missing">{{.Missing}}</p>{{end}}
</section>

<section id="steps">
<h2>Assembly / implementation steps</h2>
{{if .Spec.AssemblyOrImplementationSteps}}<ol>{{range .Spec.AssemblyOrImplementationSteps}}<li>{{.}}</li>{{end}}</ol>{{else}}<p class="missing">None listed.</p>{{end}}
</section>

<section id="risks">
<h2>Risks and trade-offs</h2>
{{if .Spec.RisksAndTradeoffs}}<ul>{{range .Spec.RisksAndTradeoffs}}<li>{{.}}</li>{{end}}</ul>{{else}}<p class="missing">None listed.</p>{{end}}
</section>

<section id="validation">
<h2>Validation checks</h2>
{{if .Spec.ValidationChecks}}<ul>{{range .Spec.ValidationChecks}}<li>{{.}}</li>{{end}}</ul>{{else}}<p class="missing">None listed.</p>{{end}}
</section>

<section id="audit">
<h2>Audit issues</h2>
{{if .Issues}}<ul>{{range .Issues}}<li>{{.}}</li>{{end}}</ul>{{else}}<p>No issues found.</p>{{end}}
</section>

<section id="code">
<h2>Prototype code</h2>
{{with .Code}}<p>Language: {{.Language}}</p>
<pre><code>{{.Code}}</code></pre>
{{$.Explanation}}{{else}}<p class="missing">{{.Missing}}</p>{{end}}
</section>

<section id="pitch">
<h2>Pitch audio</h2>
{{if .AudioURL}}<audio controls src="{{.AudioURL}}"></audio>{{else}}<p class="missing">{{.Missing}}</p>{{end}}
</section>

<section id="video">
<h2>Concept video</h2>
{{if .VideoURL}}<p><a href="{{.VideoURL}}">Watch the concept video</a></p>{{else}}<p class="missing">{{.Missing}}</p>{{end}}
</section>
</body>
</html>
`
