// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package template

// MountIndex is the default page listing the mounts of an evfs.
// It is executed with a map containing "Mounts", a list of entries with Target, Source, and Driver,
// and "Version".
const MountIndex = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>evfs</title>
</head>
<body>
<h1>Mounts</h1>
<table>
<tr><th>#</th><th>Target</th><th>Source</th><th>Driver</th></tr>
{{- range $i, $m := .Mounts }}
<tr><td>{{ sumIntegers $i 1 }}</td><td><a href="{{ $m.Target }}">{{ $m.Target }}</a></td><td>{{ $m.Source }}</td><td>{{ $m.Driver }}</td></tr>
{{- end }}
</table>
<p>evfs {{ .Version }}</p>
</body>
</html>
`

// MountEntry is a row of the mount index.
type MountEntry struct {
	Target string
	Source string
	Driver string
}

func DefaultMountIndex() (Template, error) {
	return Parse("index.html", MountIndex)
}
