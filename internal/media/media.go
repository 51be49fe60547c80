// Package media decodes client-supplied images and stores them under the
// media root.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"foodgram/internal/featureflags"
	"foodgram/internal/middleware"
	"foodgram/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// ErrInvalidImage is wrapped by every validation failure in this package.
var ErrInvalidImage = errors.New("invalid image")

const (
	// URLPrefix is where the server mounts the media root.
	URLPrefix = "/media"

	PreviewMaxWidth = 480
	PreviewQuality  = 70
	previewName     = "preview.webp"
)

var extensions = map[string]string{
	"png":  "png",
	"jpeg": "jpg",
	"jpg":  "jpg",
	"gif":  "gif",
	"webp": "webp",
}

// Image is a decoded upload.
type Image struct {
	Ext     string
	Data    []byte
	Decoded image.Image
}

func invalid(reason string) error {
	return &models.AppError{
		Code:    models.CodeValidation,
		Message: "invalid image",
		Err:     fmt.Errorf("%w: %s", ErrInvalidImage, reason),
	}
}

// ParseDataURI decodes "data:image/<ext>;base64,<payload>". maxBytes bounds
// the decoded payload; zero disables the check.
func ParseDataURI(s string, maxBytes int64) (*Image, error) {
	header, payload, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return nil, invalid("missing payload")
	}
	mediaType, found := strings.CutPrefix(header, "data:image/")
	if !found {
		return nil, invalid("not an image data URI")
	}
	format, found := strings.CutSuffix(mediaType, ";base64")
	if !found {
		return nil, invalid("payload must be base64")
	}
	ext, ok := extensions[strings.ToLower(format)]
	if !ok {
		return nil, invalid("unsupported format " + format)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, invalid("bad base64")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, invalid(fmt.Sprintf("larger than %d bytes", maxBytes))
	}
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, invalid("cannot decode")
	}
	return &Image{Ext: ext, Data: data, Decoded: decoded}, nil
}

// Kind selects the directory layout for a stored image.
type Kind int

const (
	RecipeImage Kind = iota
	Avatar
)

func (k Kind) relPath(owner, ext string) string {
	if k == Avatar {
		return path.Join("users", owner, "avatar."+ext)
	}
	return path.Join("recipes", "images", owner, "uploaded_image."+ext)
}

// Store writes images beneath root.
type Store struct {
	root  string
	flags *featureflags.Manager
}

func NewStore(root string, flags *featureflags.Manager) *Store {
	return &Store{root: root, flags: flags}
}

// Save writes img for owner and returns its path relative to the media root.
// Any previous files in the owner's directory are replaced.
func (s *Store) Save(ctx context.Context, kind Kind, owner string, img *Image) (string, error) {
	if owner == "" || strings.ContainsAny(owner, `/\.`) {
		return "", models.NewInternalError(fmt.Errorf("invalid media owner %q", owner))
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rel := kind.relPath(owner, img.Ext)
	dir := filepath.Join(s.root, filepath.FromSlash(path.Dir(rel)))
	if err := os.RemoveAll(dir); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := writeFile(filepath.Join(s.root, filepath.FromSlash(rel)), img.Data); err != nil {
		return "", models.NewInternalError(err)
	}

	if s.flags.Enabled(featureflags.WebPPreviews, 0) {
		if err := writePreview(filepath.Join(dir, previewName), img.Decoded); err != nil {
			middleware.Logger.WarnContext(ctx, "preview generation failed", "path", rel, "error", err)
		}
	}
	return rel, nil
}

// Remove deletes rel, its preview and the owner directory once it is empty.
// Missing files are not an error.
func (s *Store) Remove(rel string) error {
	clean := path.Clean("/" + rel)
	if rel == "" || clean == "/" {
		return nil
	}
	for _, p := range []string{clean, PreviewPath(clean)} {
		if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(p))); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return models.NewInternalError(err)
		}
	}
	// Fails harmlessly when other files remain.
	_ = os.Remove(filepath.Join(s.root, filepath.FromSlash(path.Dir(clean))))
	return nil
}

// URL returns the public URL of a stored path, or "" when rel is empty.
func URL(rel string) string {
	if rel == "" {
		return ""
	}
	return URLPrefix + "/" + strings.TrimPrefix(rel, "/")
}

// PreviewPath returns the webp preview path that sits beside rel.
func PreviewPath(rel string) string {
	return path.Join(path.Dir(rel), previewName)
}

func writeFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}

func writePreview(p string, src image.Image) error {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, resizeToWidth(src, PreviewMaxWidth), &webp.Options{Quality: PreviewQuality}); err != nil {
		return err
	}
	return writeFile(p, buf.Bytes())
}

func resizeToWidth(src image.Image, maxWidth int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxWidth || w == 0 {
		return src
	}
	newH := max(h*maxWidth/w, 1)
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
