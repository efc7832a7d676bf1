package services

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const (
	DefaultQRSize = 256
	MaxQRSize     = 1024
)

// NewVoucherCode derives a human-readable voucher code from a redemption id,
// formatted as three groups of four hex digits.
func NewVoucherCode(id uuid.UUID) string {
	hex := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return hex[0:4] + "-" + hex[4:8] + "-" + hex[8:12]
}

// VoucherService renders redemption vouchers as QR codes.
type VoucherService struct {
	ledger *LedgerService
}

func NewVoucherService(ledger *LedgerService) *VoucherService {
	return &VoucherService{ledger: ledger}
}

// QRCode returns a PNG QR code encoding the voucher code of a redemption
// owned by userID.
func (s *VoucherService) QRCode(ctx context.Context, userID, redemptionID uuid.UUID, size int) ([]byte, error) {
	if size == 0 {
		size = DefaultQRSize
	}
	if size < 64 || size > MaxQRSize {
		return nil, fmt.Errorf("%w: size must be between 64 and %d", ErrValidation, MaxQRSize)
	}

	redemption, err := s.ledger.GetRedemption(ctx, userID, redemptionID)
	if err != nil {
		return nil, err
	}

	return EncodeQR(redemption.VoucherCode, size)
}

// EncodeQR renders content as a PNG QR code of size×size pixels.
func EncodeQR(content string, size int) ([]byte, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(size)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
