package fp

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/robotalks/fpsensor.go/pkg/cli/sh"
	"github.com/robotalks/fpsensor.go/pkg/proto"
	"github.com/robotalks/fpsensor.go/pkg/sensor"
)

// Image dimensions.
const (
	ImageWidth     = 256
	ImageHeight    = 256
	RawImageWidth  = 160
	RawImageHeight = 120
)

func writeFile(fn string, data []byte) error {
	return os.WriteFile(fn, data, 0644)
}

func readTemplate(fn string) ([]byte, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	// a bare template is wrapped into a data packet payload.
	if len(data) == proto.TemplateSize {
		data = proto.EncodeData(data)
	}
	return data, sensor.ValidateTemplate(data)
}

// GetTemplate saves the template of a slot.
func GetTemplate(s *sensor.Sensor, args []string) (interface{}, error) {
	slot, err := parseSlot(args[0])
	if err != nil {
		return nil, err
	}
	tmpl, err := s.GetTemplate(slot)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("%d bytes", len(tmpl)), writeFile(args[1], tmpl)
}

// SetTemplate stores a template file into a slot.
func SetTemplate(s *sensor.Sensor, args []string) (interface{}, error) {
	slot, err := parseSlot(args[0])
	if err != nil {
		return nil, err
	}
	tmpl, err := readTemplate(args[1])
	if err != nil {
		return nil, err
	}
	return nil, s.SetTemplate(slot, tmpl)
}

// VerifyTemplate compares a template file with a slot.
func VerifyTemplate(s *sensor.Sensor, args []string) (interface{}, error) {
	slot, err := parseSlot(args[0])
	if err != nil {
		return nil, err
	}
	tmpl, err := readTemplate(args[1])
	if err != nil {
		return nil, err
	}
	return s.VerifyTemplate(slot, tmpl)
}

// IdentifyTemplate searches a template file.
func IdentifyTemplate(s *sensor.Sensor, args []string) (interface{}, error) {
	tmpl, err := readTemplate(args[0])
	if err != nil {
		return nil, err
	}
	return s.IdentifyTemplate(tmpl)
}

// MakeTemplate captures a finger and saves its template.
func MakeTemplate(s *sensor.Sensor, args []string) (interface{}, error) {
	tmpl, err := s.MakeTemplate()
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("%d bytes", len(tmpl)), writeFile(args[0], tmpl)
}

// EncodeImage writes gray pixels as PNG.
func EncodeImage(fn string, pixels []byte, width, height int) error {
	if len(pixels) != width*height {
		return fmt.Errorf("image of %d bytes isn't %dx%d", len(pixels), width, height)
	}
	img := &image.Gray{Pix: pixels, Stride: width, Rect: image.Rect(0, 0, width, height)}
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	if err = png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func saveImage(fn string, pixels []byte, width, height int) error {
	if strings.EqualFold(filepath.Ext(fn), ".png") {
		return EncodeImage(fn, pixels, width, height)
	}
	return writeFile(fn, pixels)
}

// Image saves the image of the last capture, as PNG for .png files.
func Image(s *sensor.Sensor, args []string) (interface{}, error) {
	pixels, err := s.GetImage()
	if err != nil {
		return nil, err
	}
	return nil, saveImage(args[0], pixels, ImageWidth, ImageHeight)
}

// RawImage saves the raw camera image, as PNG for .png files.
func RawImage(s *sensor.Sensor, args []string) (interface{}, error) {
	pixels, err := s.GetRawImage()
	if err != nil {
		return nil, err
	}
	return nil, saveImage(args[0], pixels, RawImageWidth, RawImageHeight)
}

func init() {
	sh.AddCmds(
		sh.Command("template.get", "SLOT FILE", 2, GetTemplate, "tget"),
		sh.Command("template.set", "SLOT FILE", 2, SetTemplate, "tset"),
		sh.Command("template.verify", "SLOT FILE", 2, VerifyTemplate, "tverify"),
		sh.Command("template.identify", "FILE", 1, IdentifyTemplate, "tid"),
		sh.Command("template.make", "FILE", 1, MakeTemplate, "tmake"),
		sh.Command("image", "FILE", 1, Image),
		sh.Command("image.raw", "FILE", 1, RawImage),
	)
}
