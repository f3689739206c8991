// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package ebook renders and delivers the gated book.
package ebook

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// ErrChapterNotFound is returned for unknown or malformed slugs.
var ErrChapterNotFound = errors.New("chapter not found")

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Chapter is a table-of-contents entry.
type Chapter struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// RenderedChapter is a chapter converted to HTML.
type RenderedChapter struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

// Library reads markdown chapters from a filesystem. Chapter order is
// file name order; the slug is the file name without extension.
type Library struct {
	fsys fs.FS
	md   goldmark.Markdown
}

// NewLibrary creates a Library over fsys.
func NewLibrary(fsys fs.FS) *Library {
	return &Library{
		fsys: fsys,
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Typographer,
				extension.Footnote,
			),
			goldmark.WithRendererOptions(
				htmlrenderer.WithXHTML(),
			),
		),
	}
}

// Chapters lists the available chapters.
func (l *Library) Chapters() ([]Chapter, error) {
	entries, err := fs.ReadDir(l.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading chapters: %w", err)
	}

	chapters := make([]Chapter, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".md" {
			continue
		}
		slug := strings.TrimSuffix(e.Name(), ".md")
		if !slugPattern.MatchString(slug) {
			continue
		}
		src, err := fs.ReadFile(l.fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("reading chapter %s: %w", slug, err)
		}
		chapters = append(chapters, Chapter{Slug: slug, Title: titleOf(src, slug)})
	}

	sort.Slice(chapters, func(i, j int) bool { return chapters[i].Slug < chapters[j].Slug })
	return chapters, nil
}

// Render converts the chapter with slug to HTML.
func (l *Library) Render(slug string) (*RenderedChapter, error) {
	if !slugPattern.MatchString(slug) {
		return nil, ErrChapterNotFound
	}

	src, err := fs.ReadFile(l.fsys, slug+".md")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrChapterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading chapter %s: %w", slug, err)
	}

	var buf bytes.Buffer
	if err := l.md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("rendering chapter %s: %w", slug, err)
	}

	return &RenderedChapter{
		Slug:  slug,
		Title: titleOf(src, slug),
		HTML:  buf.String(),
	}, nil
}

// titleOf returns the first level-one heading, or fallback.
func titleOf(src []byte, fallback string) string {
	sc := bufio.NewScanner(bytes.NewReader(src))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if title, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(title)
		}
	}
	return fallback
}
