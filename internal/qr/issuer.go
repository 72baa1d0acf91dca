// Package qr issues the per-course registration link and its QR code.
package qr

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

// Code is a course's registration link and its PNG QR code as a data URL.
type Code struct {
	RegistrationURL string `json:"registrationUrl"`
	QRCode          string `json:"qrCode"`
}

// Issuer renders registration QR codes under a public base URL.
type Issuer struct {
	baseURL string
	size    int
}

// NewIssuer creates an issuer. size is the PNG edge in pixels.
func NewIssuer(baseURL string, size int) *Issuer {
	return &Issuer{baseURL: strings.TrimRight(baseURL, "/"), size: size}
}

// RegistrationURL returns the self-registration page for a course.
func (i *Issuer) RegistrationURL(courseID uuid.UUID) string {
	return i.baseURL + "/register/" + courseID.String()
}

// PNG encodes the registration URL of a course as a PNG QR code.
func (i *Issuer) PNG(courseID uuid.UUID) ([]byte, error) {
	png, err := qrcode.Encode(i.RegistrationURL(courseID), qrcode.Medium, i.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// Issue returns the registration URL with its QR code inlined as a data URL.
func (i *Issuer) Issue(courseID uuid.UUID) (*Code, error) {
	png, err := i.PNG(courseID)
	if err != nil {
		return nil, err
	}
	return &Code{
		RegistrationURL: i.RegistrationURL(courseID),
		QRCode:          "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}
