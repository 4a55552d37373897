package models

import (
	"encoding/json"
	"strings"
)

// ImageKind discriminates a not-yet-uploaded local file from an already
// resolved remote URL. Keeping this a tagged value (instead of sniffing a
// string prefix at each call site) is what stops a sync engine from
// re-uploading a URL or persisting a device file path.
type ImageKind int

const (
	ImageNone ImageKind = iota
	ImageLocal
	ImageRemote
)

type ImageRef struct {
	kind ImageKind
	ref  string
}

func NoImage() ImageRef               { return ImageRef{} }
func LocalImage(path string) ImageRef { return ImageRef{kind: ImageLocal, ref: path} }
func RemoteImage(url string) ImageRef { return ImageRef{kind: ImageRemote, ref: url} }

func (r ImageRef) Kind() ImageKind { return r.kind }
func (r ImageRef) IsNone() bool    { return r.kind == ImageNone }
func (r ImageRef) IsLocal() bool   { return r.kind == ImageLocal }
func (r ImageRef) IsRemote() bool  { return r.kind == ImageRemote }

// Path returns the local file path. Only meaningful for local refs.
func (r ImageRef) Path() string { return r.ref }

// URL returns the remote URL. Only meaningful for remote refs.
func (r ImageRef) URL() string { return r.ref }

// ImageRefFromString classifies a wire value the way the mobile client did:
// device picker URIs arrive as file:// (or content:// on Android), anything
// http(s) is an already uploaded URL. Bare non-empty values are treated as
// local paths since no store document ever holds one.
func ImageRefFromString(s string) ImageRef {
	switch {
	case s == "":
		return NoImage()
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		return RemoteImage(s)
	case strings.HasPrefix(s, "file://"):
		return LocalImage(strings.TrimPrefix(s, "file://"))
	case strings.HasPrefix(s, "content://"):
		return LocalImage(s)
	default:
		return LocalImage(s)
	}
}

func (r ImageRef) String() string { return r.ref }

func (r ImageRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ref)
}

func (r *ImageRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = ImageRefFromString(s)
	return nil
}
