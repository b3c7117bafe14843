package lang

import (
	"bytes"
	"embed"
	"text/template"
)

//go:embed scripts/*.yml
var scriptFS embed.FS

func readScript(name string) string {
	data, err := scriptFS.ReadFile("scripts/" + name)
	if err != nil {
		panic("lang: missing embedded script " + name)
	}
	return string(data)
}

// expand renders an embedded script, substituting the shared prelude and
// query fragments.
func expand(name string) string {
	fragments := map[string]string{
		"Prelude":   readScript("prelude.yml"),
		"Decorator": Decorator,
		"BodyCalls": BodyCalls,
	}
	tmpl := template.Must(template.New(name).Parse(readScript(name)))
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, fragments); err != nil {
		panic("lang: render script " + name + ": " + err.Error())
	}
	return buf.String()
}
