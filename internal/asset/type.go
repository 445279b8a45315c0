package asset

import (
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/assetpipe/internal/foundation/normalization"
)

// Type is the semantic category of an asset, derived from a file extension.
type Type string

const (
	TypeUnresolved Type = ""

	// Core asset types
	TypeStyle  Type = "style"
	TypeScript Type = "script"
	TypeImage  Type = "image"
	TypeVideo  Type = "video"
	TypeAudio  Type = "audio"
	TypeFont   Type = "font"

	// Document asset types
	TypeDocument     Type = "document"
	TypeData         Type = "data"
	TypeText         Type = "text"
	TypeSpreadsheet  Type = "spreadsheet"
	TypePresentation Type = "presentation"

	TypeArchive Type = "archive"

	TypeExecutable Type = "executable"
	TypePackage    Type = "package"

	// Code asset types
	TypeSource   Type = "source"
	TypeConfig   Type = "config"
	TypeTemplate Type = "template"

	// Design and media asset types
	TypeModel   Type = "model"
	TypeDesign  Type = "design"
	TypeVector  Type = "vector"
	TypeLayout  Type = "layout"
	TypeTexture Type = "texture"

	// Miscellaneous asset types
	TypeLog         Type = "log"
	TypeBackup      Type = "backup"
	TypeCertificate Type = "certificate"
	TypeChecksum    Type = "checksum"
	TypeIcon        Type = "icon"
)

// AllTypes lists every resolvable Type.
var AllTypes = []Type{
	TypeStyle, TypeScript, TypeImage, TypeVideo, TypeAudio, TypeFont,
	TypeDocument, TypeData, TypeText, TypeSpreadsheet, TypePresentation,
	TypeArchive, TypeExecutable, TypePackage,
	TypeSource, TypeConfig, TypeTemplate,
	TypeModel, TypeDesign, TypeVector, TypeLayout, TypeTexture,
	TypeLog, TypeBackup, TypeCertificate, TypeChecksum, TypeIcon,
}

var extensionTypes = map[string]Type{
	"css": TypeStyle, "scss": TypeStyle,
	"js": TypeScript, "mjs": TypeScript,
	"png": TypeImage, "jpg": TypeImage, "jpeg": TypeImage, "gif": TypeImage, "svg": TypeImage, "webp": TypeImage,
	"mp4": TypeVideo, "mov": TypeVideo, "webm": TypeVideo,
	"mp3": TypeAudio, "wav": TypeAudio, "ogg": TypeAudio,
	"woff": TypeFont, "woff2": TypeFont, "ttf": TypeFont, "otf": TypeFont,

	"doc": TypeDocument, "docx": TypeDocument, "pdf": TypeDocument,
	"csv": TypeData, "json": TypeData, "xml": TypeData, "yml": TypeData, "sql": TypeData,
	"txt": TypeText, "md": TypeText, "rtf": TypeText,
	"xls": TypeSpreadsheet, "xlsx": TypeSpreadsheet,
	"ppt": TypePresentation, "pptx": TypePresentation,

	"zip": TypeArchive, "rar": TypeArchive, "tar": TypeArchive, "gz": TypeArchive,

	"exe": TypeExecutable, "bat": TypeExecutable, "sh": TypeExecutable,
	"deb": TypePackage, "rpm": TypePackage,

	"php": TypeSource, "html": TypeSource, "py": TypeSource, "cpp": TypeSource,
	"env": TypeConfig, "ini": TypeConfig, "yaml": TypeConfig,
	"twig": TypeTemplate, "latte": TypeTemplate, "view": TypeTemplate, "blade": TypeTemplate,

	"obj": TypeModel,
	"psd": TypeDesign, "sketch": TypeDesign,
	"ai": TypeVector, "eps": TypeVector,
	"indd": TypeLayout,
	"tga":  TypeTexture, "bmp": TypeTexture,

	"log": TypeLog,
	"bak": TypeBackup,
	"pem": TypeCertificate, "crt": TypeCertificate,
	"md5": TypeChecksum,
	"ico": TypeIcon,
}

// typeTrimSet matches the characters stripped from extensions before lookup.
const typeTrimSet = ". \n\r\t\v\x00"

var (
	// extensions only: Classify("style") must stay unresolved
	extensionNormalizer = normalization.WithCustomNormalizer(extensionTypes, TypeUnresolved, normalization.TrimSet(typeTrimSet))

	// extensions plus category names, for authored definitions
	typeNormalizer = normalization.NewCustomEnumNormalizer("asset type", typeParseTable(), TypeUnresolved, normalization.TrimSet(typeTrimSet))
)

func typeParseTable() map[string]Type {
	table := make(map[string]Type, len(extensionTypes)+len(AllTypes))
	for ext, t := range extensionTypes {
		table[ext] = t
	}
	for _, t := range AllTypes {
		if _, taken := table[string(t)]; !taken {
			table[string(t)] = t
		}
	}
	return table
}

// Classify maps a file extension (with or without the leading dot) to a Type.
// Unknown extensions yield TypeUnresolved; callers decide whether that is fatal.
func Classify(extension string) Type {
	return extensionNormalizer.Normalize(extension)
}

// ParseType accepts an extension ("css") or a category name ("style").
// In strict mode an unknown value fails with an InvalidEnumValue validation
// error; in lenient mode it yields TypeUnresolved.
func ParseType(raw string, strict bool) (Type, error) {
	return typeNormalizer.Parse(raw, strict)
}

// String implements fmt.Stringer.
func (t Type) String() string {
	if t == TypeUnresolved {
		return "unresolved"
	}
	return string(t)
}

// Resolved reports whether t names a known category.
func (t Type) Resolved() bool {
	return t != TypeUnresolved
}

// IsText reports whether sources of this type can be concatenated into a bundle.
func (t Type) IsText() bool {
	switch t {
	case TypeStyle, TypeScript, TypeData, TypeText, TypeSource, TypeConfig, TypeTemplate, TypeLog, TypeChecksum:
		return true
	default:
		return false
	}
}

// CanonicalExtension is the output extension for bundles of this type, or ""
// when the extension of the first source should be kept.
func (t Type) CanonicalExtension() string {
	switch t {
	case TypeStyle:
		return "css"
	case TypeScript:
		return "js"
	default:
		return ""
	}
}

// SourceExtension returns the lowercased extension of a local path or URL,
// without the leading dot. Query strings and fragments are ignored.
func SourceExtension(source string) string {
	p := source
	if strings.Contains(source, "://") || strings.HasPrefix(source, "//") {
		if u, err := url.Parse(source); err == nil {
			p = u.Path
		}
		return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	}
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(p), "."))
}

// ClassifySources derives one Type for an ordered source list. conflict is true
// when the sources resolve to more than one distinct Type; the first resolved
// Type is returned in that case.
func ClassifySources(sources []string) (t Type, conflict bool) {
	for _, src := range sources {
		st := Classify(SourceExtension(src))
		if !st.Resolved() {
			continue
		}
		if t == TypeUnresolved {
			t = st
			continue
		}
		if st != t {
			conflict = true
		}
	}
	return t, conflict
}

// MediaType returns the MIME type for an extension, defaulting to
// application/octet-stream.
func MediaType(extension string) string {
	if mt := mime.TypeByExtension("." + strings.TrimPrefix(extension, ".")); mt != "" {
		return mt
	}
	return "application/octet-stream"
}
