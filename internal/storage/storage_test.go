package storage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeImageShrinksWideScreenshots(t *testing.T) {
	out, ct, err := NormalizeImage(pngBytes(t, 400, 200), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct != "image/jpeg" {
		t.Fatalf("expected jpeg, got %s", ct)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Fatalf("unexpected size %v", img.Bounds())
	}
}

func TestNormalizeImageKeepsSmallScreenshots(t *testing.T) {
	out, _, err := NormalizeImage(pngBytes(t, 80, 40), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() != 80 {
		t.Fatalf("expected width 80, got %d", img.Bounds().Dx())
	}
}

func TestNormalizeImageRejectsNonImages(t *testing.T) {
	if _, _, err := NormalizeImage([]byte("%PDF-1.4 receipt"), 100); !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
}

type recordingPutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (p *recordingPutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	p.input = params
	p.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, p.err
}

func newTestProofStore(putter objectPutter) *ProofStore {
	s := newProofStore(Config{Bucket: "proofs", PublicBaseURL: "https://cdn.example.com/", Prefix: "/payments/"}, putter)
	s.now = func() time.Time { return time.Date(2026, 3, 9, 23, 30, 0, 0, time.FixedZone("IST", 5*3600+1800)) }
	s.newID = func() string { return "0d9c" }
	return s
}

func TestProofStoreFilesByPlanAndDay(t *testing.T) {
	putter := &recordingPutter{}
	s := newTestProofStore(putter)

	url, err := s.Put(context.Background(), Proof{Plan: "Pro", Filename: "C:/phone/upi-receipt.png", ContentType: "image/jpeg", Data: []byte("jpegdata")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://cdn.example.com/payments/pro/2026-03-09/0d9c.jpg" {
		t.Fatalf("unexpected url %q", url)
	}
	if *putter.input.Bucket != "proofs" || *putter.input.ContentType != "image/jpeg" {
		t.Fatalf("unexpected put input %+v", putter.input)
	}
	if putter.input.Metadata["plan"] != "pro" || putter.input.Metadata["original-filename"] != "upi-receipt.png" {
		t.Fatalf("unexpected metadata %v", putter.input.Metadata)
	}
	if string(putter.body) != "jpegdata" {
		t.Fatalf("unexpected body %q", putter.body)
	}
}

func TestProofStoreSniffsTypeAndGuardsPlanFolder(t *testing.T) {
	putter := &recordingPutter{}
	s := newTestProofStore(putter)

	url, err := s.Put(context.Background(), Proof{Plan: "../gold", Data: []byte("%PDF-1.4 receipt")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(url, "/payments/unknown/2026-03-09/0d9c.pdf") {
		t.Fatalf("unexpected url %q", url)
	}
	if _, ok := putter.input.Metadata["original-filename"]; ok {
		t.Fatalf("unexpected filename metadata %v", putter.input.Metadata)
	}
}

func TestProofStoreErrors(t *testing.T) {
	s := newTestProofStore(&recordingPutter{err: errors.New("denied")})
	if _, err := s.Put(context.Background(), Proof{Plan: "pro"}); !errors.Is(err, ErrEmptyProof) {
		t.Fatalf("expected ErrEmptyProof, got %v", err)
	}
	if _, err := s.Put(context.Background(), Proof{Plan: "pro", Data: []byte("x")}); err == nil || !strings.Contains(err.Error(), "payments/pro/") {
		t.Fatalf("expected put error naming the key, got %v", err)
	}
}

func TestNewProofStoreValidates(t *testing.T) {
	_, err := NewProofStore(Config{AccessKey: "a", PublicBaseURL: "https://x"})
	if err == nil {
		t.Fatal("expected config error")
	}
	for _, want := range []string{"bucket", "region", "secret key"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
	if _, err := NewProofStore(Config{Bucket: "b", Region: "ap-south-1", AccessKey: "a", SecretKey: "s", PublicBaseURL: "https://x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
