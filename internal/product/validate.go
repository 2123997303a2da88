package product

import (
	"strings"

	"github.com/h2non/filetype"
	"github.com/spf13/cast"
)

// Field error kinds rendered inline by the admin form.
const (
	ErrRequired         = "REQUIRED_FIELD"
	ErrInvalidRange     = "INVALID_RANGE"
	ErrUnsupportedMedia = "UNSUPPORTED_MEDIA_TYPE"
	ErrFileTooLarge     = "FILE_TOO_LARGE"
)

// acceptedImageTypes is the fixed set of preview image MIME types.
var acceptedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// Upload is a submitted binary form field. A zero-length upload means
// "no file chosen" and is treated as absent on edit.
type Upload struct {
	Name string
	Data []byte
}

func (u *Upload) empty() bool { return u == nil || len(u.Data) == 0 }

// FormInput is the raw field-keyed submission from the admin form.
// Price arrives as text and is coerced during validation.
type FormInput struct {
	Name        string
	Description string
	Price       string
	File        *Upload
	Image       *Upload
}

// FieldErrors maps a field name to one or more error kinds. A nil map
// means the submission validated.
type FieldErrors map[string][]string

func (fe FieldErrors) add(field, kind string) FieldErrors {
	if fe == nil {
		fe = FieldErrors{}
	}
	fe[field] = append(fe[field], kind)
	return fe
}

// validated holds the normalized submission. File and Image are nil
// when the edit form left them untouched.
type validated struct {
	Name         string
	Description  string
	PriceInCents int64
	File         *Upload
	Image        *Upload
}

type schemaMode int

const (
	schemaCreate schemaMode = iota
	schemaEdit
)

// validateForm applies the shared field-rule table. Create and edit are
// two explicit variants of the same table: on create the file and image
// are required, on edit an empty upload means "keep the current asset".
func validateForm(in FormInput, mode schemaMode, maxImageSize int64) (*validated, FieldErrors) {
	var fe FieldErrors

	name := strings.TrimSpace(in.Name)
	if name == "" {
		fe = fe.add("name", ErrRequired)
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		fe = fe.add("description", ErrRequired)
	}

	price, err := cast.ToInt64E(strings.TrimSpace(in.Price))
	if err != nil || price < 1 {
		fe = fe.add("price", ErrInvalidRange)
	}

	file := in.File
	if file.empty() {
		file = nil
		if mode == schemaCreate {
			fe = fe.add("file", ErrRequired)
		}
	}

	image := in.Image
	if image.empty() {
		image = nil
		if mode == schemaCreate {
			fe = fe.add("image", ErrRequired)
		}
	} else {
		fe = checkImage(fe, image, maxImageSize)
	}

	if fe != nil {
		return nil, fe
	}
	return &validated{
		Name:         name,
		Description:  description,
		PriceInCents: price,
		File:         file,
		Image:        image,
	}, nil
}

// checkImage sniffs the MIME type from the bytes rather than trusting
// the submitted content type, then applies the size ceiling.
func checkImage(fe FieldErrors, image *Upload, maxImageSize int64) FieldErrors {
	kind, err := filetype.Match(image.Data)
	if err != nil || kind == filetype.Unknown || !acceptedImageTypes[kind.MIME.Value] {
		return fe.add("image", ErrUnsupportedMedia)
	}
	if maxImageSize > 0 && int64(len(image.Data)) > maxImageSize {
		return fe.add("image", ErrFileTooLarge)
	}
	return fe
}

// ValidateCreate validates an add-product submission.
func ValidateCreate(in FormInput, maxImageSize int64) (*validated, FieldErrors) {
	return validateForm(in, schemaCreate, maxImageSize)
}

// ValidateEdit validates an edit-product submission; file and image are
// optional replacements.
func ValidateEdit(in FormInput, maxImageSize int64) (*validated, FieldErrors) {
	return validateForm(in, schemaEdit, maxImageSize)
}
