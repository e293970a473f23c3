package sensor

import (
	"fmt"

	"github.com/robotalks/fpsensor.go/pkg/comm"
	"github.com/robotalks/fpsensor.go/pkg/proto"
)

// Templates are exchanged as data packet payloads: device id, the
// 498 bytes template and the data checksum, as returned by GetTemplate.

// ValidateTemplate checks the size and checksum of a template payload.
func ValidateTemplate(tmpl []byte) error {
	if len(tmpl) != proto.TemplatePayloadSize {
		return fmt.Errorf("%w: %d bytes", ErrTemplateSize, len(tmpl))
	}
	if !proto.DataPayload(tmpl).ChecksumValid() {
		return ErrBadPayload
	}
	return nil
}

func download(reply *comm.Reply, size int) ([]byte, error) {
	if !reply.HasData() {
		return nil, ErrNoPayload
	}
	if err := comm.ExpectLength(reply.Data, proto.PayloadSize(size)); err != nil {
		return nil, err
	}
	if !reply.Data.ChecksumValid() {
		return nil, ErrBadPayload
	}
	return reply.Data, nil
}

// upload sends cmd and then the template. A NACK to cmd is returned as
// the reply and the template is not sent.
func (s *Sensor) upload(cmd proto.Command, param uint32, tmpl []byte) (*comm.Reply, error) {
	if err := ValidateTemplate(tmpl); err != nil {
		return nil, err
	}
	reply, err := s.exchange(cmd, param)
	if err != nil || !reply.Ack {
		return reply, err
	}
	return s.conn.SendBulk(proto.WithMarker(tmpl))
}

// SetTemplate stores a template into slot.
func (s *Sensor) SetTemplate(slot int, tmpl []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	param, err := slotParam(slot)
	if err != nil {
		return err
	}
	reply, err := s.upload(proto.CmdSetTemplate, param, tmpl)
	if err != nil {
		return err
	}
	return reply.Err(proto.CmdSetTemplate)
}

// VerifyTemplate compares a template with the one in slot.
func (s *Sensor) VerifyTemplate(slot int, tmpl []byte) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	param, err := slotParam(slot)
	if err != nil {
		return false, err
	}
	reply, err := s.upload(proto.CmdVerifyTemplate1_1, param, tmpl)
	if err != nil {
		return false, err
	}
	err = reply.Err(proto.CmdVerifyTemplate1_1)
	if proto.IsNack(err, proto.NackVerifyFailed) {
		return false, nil
	}
	return err == nil, err
}

// IdentifyTemplate searches all slots for a template.
func (s *Sensor) IdentifyTemplate(tmpl []byte) (Match, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return matchOf(s.upload(proto.CmdIdentifyTemplate1_N, 0, tmpl))
}

// GetTemplate downloads the template in slot.
func (s *Sensor) GetTemplate(slot int) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	param, err := slotParam(slot)
	if err != nil {
		return nil, err
	}
	reply, err := s.do(proto.CmdGetTemplate, param)
	if err != nil {
		return nil, err
	}
	return download(reply, proto.TemplateSize)
}

// MakeTemplate captures a finger and downloads its template without
// storing it.
func (s *Sensor) MakeTemplate() ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.captureFinger(true); err != nil {
		return nil, err
	}
	reply, err := s.do(proto.CmdMakeTemplate, 0)
	if err != nil {
		return nil, err
	}
	return download(reply, proto.TemplateSize)
}

// GetImage downloads the pixels of the last captured finger.
func (s *Sensor) GetImage() ([]byte, error) {
	return s.image(proto.CmdGetImage, proto.ImageSize)
}

// GetRawImage downloads the pixels of the raw camera image.
func (s *Sensor) GetRawImage() ([]byte, error) {
	return s.image(proto.CmdGetRawImage, proto.RawImageSize)
}

func (s *Sensor) image(cmd proto.Command, size int) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	reply, err := s.do(cmd, 0)
	if err != nil {
		return nil, err
	}
	data, err := download(reply, size)
	if err != nil {
		return nil, err
	}
	return proto.DataPayload(data).Body(), nil
}
