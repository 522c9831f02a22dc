package populate

import (
	"encoding/xml"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/thywilljoshua/notescan/internal/outline"
)

var (
	layoutPartRe   = regexp.MustCompile(`^ppt/slideLayouts/slideLayout(\d+)\.xml$`)
	sldIdLstRe     = regexp.MustCompile(`(?s)<p:sldIdLst\s*/>|<p:sldIdLst>.*?</p:sldIdLst>`)
	custShowLstRe  = regexp.MustCompile(`(?s)<p:custShowLst\s*/>|<p:custShowLst>.*?</p:custShowLst>`)
	sectionExtRe   = regexp.MustCompile(`(?s)<p:ext\s[^>]*uri="\{521415D9-36F7-43E2-AB2F-B90AF26B5E84\}"[^>]*>.*?</p:ext>`)
	emptyExtLstRe  = regexp.MustCompile(`<p:extLst>\s*</p:extLst>|<p:extLst\s*/>`)
	contentLayouts = []string{"Title and Content", "Title, Content", "Body", "Content"}
	titleLayouts   = []string{"Title Slide", "Title"}
)

type placeholder struct {
	Type string `xml:"type,attr"`
	Idx  string `xml:"idx,attr"`
}

type layoutXML struct {
	CSld struct {
		Name   string `xml:"name,attr"`
		Shapes []struct {
			Ph *placeholder `xml:"nvSpPr>nvPr>ph"`
		} `xml:"spTree>sp"`
	} `xml:"cSld"`
}

// slideLayout is what the populator needs to know about one layout part.
type slideLayout struct {
	part     string
	name     string
	title    *placeholder
	subtitle *placeholder
	body     *placeholder
}

func (l *slideLayout) hasContent() bool { return l.title != nil && l.body != nil }

func parseLayout(part string, data []byte) (*slideLayout, error) {
	var x layoutXML
	if err := xml.Unmarshal(data, &x); err != nil {
		return nil, fmt.Errorf("parse %s: %w", part, err)
	}
	l := &slideLayout{part: part, name: strings.TrimSpace(x.CSld.Name)}
	for _, sp := range x.CSld.Shapes {
		ph := sp.Ph
		if ph == nil {
			continue
		}
		switch ph.Type {
		case "title", "ctrTitle":
			if l.title == nil {
				l.title = ph
			}
		case "subTitle":
			if l.subtitle == nil {
				l.subtitle = ph
			}
		case "body":
			if l.body == nil {
				l.body = ph
			}
		case "", "obj":
			if l.body == nil && ph.Idx != "" && ph.Idx != "0" {
				l.body = ph
			}
		}
	}
	return l, nil
}

// pickLayouts finds the content layout by name, then by structure, and the
// title layout the same way. The title layout falls back to the content one.
func pickLayouts(layouts []*slideLayout) (title, content *slideLayout) {
	for _, want := range contentLayouts {
		for _, l := range layouts {
			if strings.EqualFold(l.name, want) && l.hasContent() {
				content = l
				break
			}
		}
		if content != nil {
			break
		}
	}
	if content == nil {
		for _, l := range layouts {
			if l.hasContent() && (content == nil || content.title.Type == "ctrTitle") {
				content = l
			}
			if content != nil && content.title.Type == "title" {
				break
			}
		}
	}
	if content == nil {
		return nil, nil
	}

	for _, want := range titleLayouts {
		for _, l := range layouts {
			if strings.EqualFold(l.name, want) && l.title != nil {
				return l, content
			}
		}
	}
	for _, l := range layouts {
		if l.title != nil && l.title.Type == "ctrTitle" {
			return l, content
		}
	}
	return content, content
}

type slidePlan struct {
	layout   *slideLayout
	title    string
	subtitle string
	bullets  []outline.Bullet
}

func planSlides(o outline.Outline, title, content *slideLayout) []slidePlan {
	var plans []slidePlan
	sections := o.Sections
	if title != content {
		first := sections[0]
		p := slidePlan{layout: title, title: first.Title}
		rest := first.Bullets
		switch {
		case title.subtitle != nil && len(rest) > 0:
			p.subtitle = rest[0].Text
			rest = rest[1:]
		case title.body != nil:
			p.bullets, rest = rest, nil
		}
		plans = append(plans, p)
		if len(rest) > 0 {
			plans = append(plans, slidePlan{layout: content, title: first.Title, bullets: rest})
		}
		sections = sections[1:]
	}
	for _, s := range sections {
		plans = append(plans, slidePlan{layout: content, title: s.Title, bullets: s.Bullets})
	}
	return plans
}

func populateSlides(o outline.Outline, tmpl []byte) ([]byte, error) {
	p, err := slidesPackage(tmpl)
	if err != nil {
		return nil, err
	}

	pres, ok := p.get("ppt/presentation.xml")
	if !ok {
		return nil, incompatible(Slides, "missing ppt/presentation.xml")
	}
	if !strings.Contains(string(pres), "<p:presentation") {
		return nil, incompatible(Slides, "ppt/presentation.xml is not a PresentationML part with the p: prefix")
	}

	var layouts []*slideLayout
	for _, part := range p.matching(layoutPartRe) {
		data, _ := p.get(part)
		l, err := parseLayout(part, data)
		if err != nil {
			return nil, incompatible(Slides, "%v", err)
		}
		layouts = append(layouts, l)
	}
	titleLayout, contentLayout := pickLayouts(layouts)
	if contentLayout == nil {
		return nil, incompatible(Slides, "no slide layout with a title and a body placeholder")
	}

	ct, err := p.contentTypes()
	if err != nil {
		return nil, incompatible(Slides, "%v", err)
	}
	presRels, err := p.relationships("ppt/_rels/presentation.xml.rels")
	if err != nil {
		return nil, incompatible(Slides, "%v", err)
	}

	clearSlides(p, ct, presRels)

	var ids strings.Builder
	ids.WriteString("<p:sldIdLst>")
	for i, plan := range planSlides(o, titleLayout, contentLayout) {
		n := i + 1
		part := fmt.Sprintf("ppt/slides/slide%d.xml", n)
		p.set(part, renderSlide(plan))

		rels := &relationships{Rels: []relationship{{
			ID:     "rId1",
			Type:   relTypeLayout,
			Target: "../slideLayouts/" + path.Base(plan.layout.part),
		}}}
		if err := p.setRelationships(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), rels); err != nil {
			return nil, err
		}
		ct.addOverride("/"+part, ctSlide)

		rid := presRels.nextID()
		presRels.Rels = append(presRels.Rels, relationship{ID: rid, Type: relTypeSlide, Target: fmt.Sprintf("slides/slide%d.xml", n)})
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="%s"/>`, 255+n, rid)
	}
	ids.WriteString("</p:sldIdLst>")

	updated, err := insertSlideIDs(string(pres), ids.String())
	if err != nil {
		return nil, err
	}
	p.set("ppt/presentation.xml", []byte(updated))
	if err := p.setRelationships("ppt/_rels/presentation.xml.rels", presRels); err != nil {
		return nil, err
	}
	if err := p.setContentTypes(ct); err != nil {
		return nil, err
	}
	return p.bytes()
}

func slidesPackage(tmpl []byte) (*opcPackage, error) {
	if len(tmpl) == 0 {
		return defaultPackage(defaultSlidesParts)
	}
	p, err := readPackage(tmpl)
	if err != nil {
		return nil, incompatible(Slides, "not a pptx package: %v", err)
	}
	return p, nil
}

// clearSlides drops the template's own slides and their notes.
func clearSlides(p *opcPackage, ct *contentTypes, presRels *relationships) {
	for _, name := range append([]string(nil), p.names...) {
		if strings.HasPrefix(name, "ppt/slides/") || strings.HasPrefix(name, "ppt/notesSlides/") {
			p.remove(name)
			ct.removeOverride("/" + name)
		}
	}
	kept := presRels.Rels[:0]
	for _, r := range presRels.Rels {
		if r.Type != relTypeSlide {
			kept = append(kept, r)
		}
	}
	presRels.Rels = kept
}

// insertSlideIDs replaces any existing slide id list. The list has to sit
// after the master lists and before the slide size. Custom shows and
// PowerPoint sections name slides by id, so they go with the old slides.
func insertSlideIDs(pres, ids string) (string, error) {
	pres = sldIdLstRe.ReplaceAllString(pres, "")
	pres = custShowLstRe.ReplaceAllString(pres, "")
	pres = sectionExtRe.ReplaceAllString(pres, "")
	pres = emptyExtLstRe.ReplaceAllString(pres, "")
	for _, anchor := range []string{"<p:sldSz", "<p:notesSz"} {
		if i := strings.Index(pres, anchor); i >= 0 {
			return pres[:i] + ids + pres[i:], nil
		}
	}
	return "", incompatible(Slides, "ppt/presentation.xml has no p:sldSz or p:notesSz element")
}

const (
	slideHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
		`<p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`
	slideTail = `</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`
)

func renderSlide(plan slidePlan) []byte {
	var b strings.Builder
	b.WriteString(slideHead)
	id := 2
	writeShape(&b, id, "Title", plan.layout.title, []outline.Bullet{{Text: plan.title}})
	if plan.subtitle != "" && plan.layout.subtitle != nil {
		id++
		writeShape(&b, id, "Subtitle", plan.layout.subtitle, []outline.Bullet{{Text: plan.subtitle}})
	}
	if len(plan.bullets) > 0 && plan.layout.body != nil {
		id++
		writeShape(&b, id, "Content", plan.layout.body, plan.bullets)
	}
	b.WriteString(slideTail)
	return []byte(b.String())
}

func writeShape(b *strings.Builder, id int, name string, ph *placeholder, paras []outline.Bullet) {
	fmt.Fprintf(b, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s %d"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph`, id, name, id-1)
	if ph.Type != "" {
		fmt.Fprintf(b, ` type="%s"`, escapeXML(ph.Type))
	}
	if ph.Idx != "" {
		fmt.Fprintf(b, ` idx="%s"`, escapeXML(ph.Idx))
	}
	b.WriteString(`/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/>`)
	for _, para := range paras {
		b.WriteString("<a:p>")
		if para.Level > 0 {
			fmt.Fprintf(b, `<a:pPr lvl="%d"/>`, para.Level)
		}
		fmt.Fprintf(b, `<a:r><a:rPr lang="en-US" dirty="0"/><a:t>%s</a:t></a:r></a:p>`, escapeXML(para.Text))
	}
	b.WriteString(`</p:txBody></p:sp>`)
}
