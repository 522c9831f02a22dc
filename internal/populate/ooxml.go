package populate

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// zipEpoch is stamped on every entry so identical inputs produce identical
// archives.
var zipEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	nsContentTypes = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsPackageRels  = "http://schemas.openxmlformats.org/package/2006/relationships"
	relTypeSlide   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	relTypeLayout  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	ctSlide        = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
)

// opcPackage is an Open Packaging Conventions archive held in memory with its
// entry order preserved.
type opcPackage struct {
	names []string
	parts map[string][]byte
}

func newPackage() *opcPackage {
	return &opcPackage{parts: map[string][]byte{}}
}

func readPackage(data []byte) (*opcPackage, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	p := newPackage()
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		p.set(f.Name, b)
	}
	return p, nil
}

func (p *opcPackage) get(name string) ([]byte, bool) {
	b, ok := p.parts[name]
	return b, ok
}

func (p *opcPackage) set(name string, data []byte) {
	if _, ok := p.parts[name]; !ok {
		p.names = append(p.names, name)
	}
	p.parts[name] = data
}

func (p *opcPackage) remove(name string) {
	if _, ok := p.parts[name]; !ok {
		return
	}
	delete(p.parts, name)
	for i, n := range p.names {
		if n == name {
			p.names = append(p.names[:i], p.names[i+1:]...)
			break
		}
	}
}

// matching returns the part names matching re, ordered by the first numeric
// submatch so slide10 sorts after slide9.
func (p *opcPackage) matching(re *regexp.Regexp) []string {
	var out []string
	for _, n := range p.names {
		if re.MatchString(n) {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return partNumber(re, out[i]) < partNumber(re, out[j])
	})
	return out
}

func partNumber(re *regexp.Regexp, name string) int {
	m := re.FindStringSubmatch(name)
	if len(m) < 2 {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func (p *opcPackage) bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range p.names {
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: zipEpoch}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := w.Write(p.parts[name]); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type contentTypes struct {
	XMLName   xml.Name     `xml:"http://schemas.openxmlformats.org/package/2006/content-types Types"`
	Defaults  []ctDefault  `xml:"Default"`
	Overrides []ctOverride `xml:"Override"`
}

type ctDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type ctOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

func (p *opcPackage) contentTypes() (*contentTypes, error) {
	b, ok := p.get("[Content_Types].xml")
	if !ok {
		return nil, fmt.Errorf("missing [Content_Types].xml")
	}
	var ct contentTypes
	if err := xml.Unmarshal(b, &ct); err != nil {
		return nil, fmt.Errorf("parse [Content_Types].xml: %w", err)
	}
	return &ct, nil
}

func (p *opcPackage) setContentTypes(ct *contentTypes) error {
	ct.XMLName = xml.Name{Space: nsContentTypes, Local: "Types"}
	return p.setXML("[Content_Types].xml", ct)
}

func (ct *contentTypes) removeOverride(partName string) {
	out := ct.Overrides[:0]
	for _, o := range ct.Overrides {
		if o.PartName != partName {
			out = append(out, o)
		}
	}
	ct.Overrides = out
}

func (ct *contentTypes) addOverride(partName, contentType string) {
	ct.removeOverride(partName)
	ct.Overrides = append(ct.Overrides, ctOverride{PartName: partName, ContentType: contentType})
}

type relationships struct {
	XMLName xml.Name       `xml:"http://schemas.openxmlformats.org/package/2006/relationships Relationships"`
	Rels    []relationship `xml:"Relationship"`
}

type relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

func (p *opcPackage) relationships(name string) (*relationships, error) {
	b, ok := p.get(name)
	if !ok {
		return &relationships{}, nil
	}
	var rels relationships
	if err := xml.Unmarshal(b, &rels); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return &rels, nil
}

func (p *opcPackage) setRelationships(name string, rels *relationships) error {
	rels.XMLName = xml.Name{Space: nsPackageRels, Local: "Relationships"}
	return p.setXML(name, rels)
}

// nextID returns an unused rIdN.
func (r *relationships) nextID() string {
	max := 0
	for _, rel := range r.Rels {
		if n, err := strconv.Atoi(strings.TrimPrefix(rel.ID, "rId")); err == nil && n > max {
			max = n
		}
	}
	return "rId" + strconv.Itoa(max+1)
}

func (p *opcPackage) setXML(name string, v any) error {
	out, err := xml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	p.set(name, append([]byte(xml.Header), out...))
	return nil
}

// escapeXML returns s escaped for use in element text or attribute values.
func escapeXML(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
