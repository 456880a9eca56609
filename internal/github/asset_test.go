package github

import (
	"testing"
	"text/template"
)

func TestParseServerTag(t *testing.T) {
	v, ok := ParseServerTag("mysql-8.0.36")
	if !ok || v != (Version{8, 0, 36}) {
		t.Errorf("got %v, %v", v, ok)
	}
	for _, tag := range []string{"mysql-cluster-8.0.36", "v8.0.36", "mysql-8.0", "mysql-8.0.36-rc"} {
		if _, ok := ParseServerTag(tag); ok {
			t.Errorf("ParseServerTag(%q) should fail", tag)
		}
	}
}

func TestParseArchiveVersion(t *testing.T) {
	cases := map[string]Version{
		`C:\Downloads\mysql-8.0.36-winx64.zip`: {8, 0, 36},
		`D:\db\MySQL-5.7.44-winx64`:            {5, 7, 44},
		"mysql-8.4.2-winx64.zip":               {8, 4, 2},
	}
	for path, want := range cases {
		got, ok := ParseArchiveVersion(path)
		if !ok || got != want {
			t.Errorf("ParseArchiveVersion(%q) = %v, %v; want %v", path, got, ok, want)
		}
	}
	if _, ok := ParseArchiveVersion("mysql.zip"); ok {
		t.Error("expected no version in mysql.zip")
	}
}

func TestVersionCompare(t *testing.T) {
	a := Version{8, 0, 36}
	if a.Compare(Version{8, 0, 9}) != 1 {
		t.Error("8.0.36 should be newer than 8.0.9")
	}
	if a.Compare(Version{8, 4, 0}) != -1 {
		t.Error("8.0.36 should be older than 8.4.0")
	}
	if a.Compare(a) != 0 {
		t.Error("equal versions should compare 0")
	}
	if a.String() != "8.0.36" {
		t.Errorf("String() = %q", a.String())
	}
}

func TestResolveArchiveName(t *testing.T) {
	tmpl := template.Must(template.New("a").Parse("mysql-{{.Version}}-winx64.zip ({{.Series}})"))
	got, err := ResolveArchiveName(tmpl, Version{8, 4, 2})
	if err != nil {
		t.Fatal(err)
	}
	if got != "mysql-8.4.2-winx64.zip (8.4)" {
		t.Errorf("got %q", got)
	}
}
