// Package sim provides a simulated fingerprint sensor for development and
// tests without hardware.
package sim

import (
	"bytes"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/fpsensor.go/pkg/proto"
	"github.com/robotalks/fpsensor.go/pkg/transport"
)

// DefaultCapacity is the number of slots of a GT-521F32.
const DefaultCapacity = 200

// NoSaveSlot asks EnrollStart to not store the merged template.
const NoSaveSlot = 0xffffffff

type failure struct {
	remaining int
	code      proto.ErrorCode
}

type upload struct {
	cmd   proto.Command
	param uint32
	buf   []byte
}

// Device simulates the sensor behind a UART.
type Device struct {
	Capacity    int
	ReadTimeout time.Duration
	// Noise is emitted for every write received at a wrong baud rate.
	Noise []byte

	lock      sync.Mutex
	baud      int
	finger    []byte
	slots     map[int][]byte
	led       bool
	opened    bool
	captured  []byte
	enrolling bool
	enrollID  uint32
	stage     int
	failures  map[proto.Command]*failure
	identify  []int
	corrupt   int
	received  []proto.Command
	parser    proto.Parser
	upload    *upload
	out       []byte
}

// New creates a Device listening at baud.
func New(baud int) *Device {
	return &Device{
		Capacity:    DefaultCapacity,
		ReadTimeout: time.Millisecond,
		Noise:       []byte{0xf8, 0x00, 0x80},
		baud:        baud,
		slots:       make(map[int][]byte),
		failures:    make(map[proto.Command]*failure),
	}
}

// FingerTemplate generates a distinct template body for a finger.
func FingerTemplate(finger byte) []byte {
	t := make([]byte, proto.TemplateSize)
	for i := range t {
		t[i] = byte(i*31) ^ (finger * 17) ^ byte(i>>3)
	}
	return t
}

// Baud gets the rate the device listens at.
func (d *Device) Baud() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.baud
}

// LED reports the CMOS LED state.
func (d *Device) LED() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.led
}

// Press puts a finger with the template on the sensor.
func (d *Device) Press(template []byte) {
	d.lock.Lock()
	d.finger = template
	d.lock.Unlock()
}

// Release removes the finger.
func (d *Device) Release() {
	d.Press(nil)
}

// Store puts a template into a slot directly.
func (d *Device) Store(slot int, template []byte) {
	d.lock.Lock()
	d.slots[slot] = template
	d.lock.Unlock()
}

// Slot gets the template stored in a slot.
func (d *Device) Slot(slot int) []byte {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.slots[slot]
}

// Enrolled returns the number of used slots.
func (d *Device) Enrolled() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return len(d.slots)
}

// Fail makes the next times executions of cmd NACK with code.
// A negative times fails forever.
func (d *Device) Fail(cmd proto.Command, times int, code proto.ErrorCode) {
	d.lock.Lock()
	d.failures[cmd] = &failure{remaining: times, code: code}
	d.lock.Unlock()
}

// ScriptIdentify sets results of the next Identify1_N commands,
// a negative value is a failed identification.
func (d *Device) ScriptIdentify(results ...int) {
	d.lock.Lock()
	d.identify = append(d.identify, results...)
	d.lock.Unlock()
}

// CorruptNext damages the checksum of the next n responses.
func (d *Device) CorruptNext(n int) {
	d.lock.Lock()
	d.corrupt = n
	d.lock.Unlock()
}

// Received returns the commands received so far.
func (d *Device) Received() []proto.Command {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]proto.Command(nil), d.received...)
}

// Count returns how many times cmd was received.
func (d *Device) Count(cmd proto.Command) (n int) {
	for _, c := range d.Received() {
		if c == cmd {
			n++
		}
	}
	return
}

// Open implements transport.Opener.
func (d *Device) Open(baud int) (transport.Port, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.out, d.upload = nil, nil
	d.parser.Reset()
	return &Port{dev: d, baud: baud}, nil
}

func (d *Device) write(baud int, b []byte) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if baud != d.baud {
		d.out = append(d.out, d.Noise...)
		return
	}
	for len(b) > 0 {
		if u := d.upload; u != nil {
			need := 2 + proto.TemplatePayloadSize - len(u.buf)
			if need > len(b) {
				need = len(b)
			}
			u.buf = append(u.buf, b[:need]...)
			b = b[need:]
			if len(u.buf) == 2+proto.TemplatePayloadSize {
				d.upload = nil
				d.uploaded(u)
			}
			continue
		}
		if pr := d.parser.Parse(b[0]); pr.Packet != nil {
			d.execute(pr.Packet)
		}
		b = b[1:]
	}
}

func (d *Device) respond(ack bool, param uint32) {
	pkt := proto.EncodeResponse(ack, param)
	if d.corrupt > 0 {
		d.corrupt--
		pkt[4] ^= 0x01
	}
	d.out = append(d.out, pkt.Bytes()...)
}

func (d *Device) ack(param uint32) {
	d.respond(true, param)
}

func (d *Device) nack(code proto.ErrorCode) {
	d.respond(false, uint32(code))
}

func (d *Device) data(body []byte) {
	d.out = append(d.out, proto.WithMarker(proto.EncodeData(body))...)
}

func (d *Device) scriptedFailure(cmd proto.Command) (proto.ErrorCode, bool) {
	f := d.failures[cmd]
	if f == nil || f.remaining == 0 {
		return 0, false
	}
	if f.remaining > 0 {
		f.remaining--
	}
	return f.code, true
}

func (d *Device) validSlot(param uint32) bool {
	return param < uint32(d.Capacity)
}

func (d *Device) match(template []byte) (int, bool) {
	for slot, t := range d.slots {
		if bytes.Equal(t, template) {
			return slot, true
		}
	}
	return 0, false
}

func (d *Device) execute(pkt *proto.Packet) {
	cmd, param := pkt.Command(), pkt.Param()
	if !proto.DecodeResponse(*pkt).ChecksumValid {
		d.nack(proto.NackCommErr)
		return
	}
	d.received = append(d.received, cmd)
	glog.V(3).Infof("sim: %s(%d)", cmd, param)
	if code, ok := d.scriptedFailure(cmd); ok {
		d.nack(code)
		return
	}

	switch cmd {
	case proto.CmdOpen:
		d.opened = true
		d.ack(0)
	case proto.CmdClose:
		d.opened = false
		d.ack(0)
	case proto.CmdChangeBaudrate:
		if !transport.IsSupportedBaud(int(param)) {
			d.nack(proto.NackInvalidBaudrate)
			return
		}
		d.ack(0)
		d.baud = int(param)
	case proto.CmdCmosLed:
		d.led = param != 0
		d.ack(0)
	case proto.CmdGetEnrollCount:
		d.ack(uint32(len(d.slots)))
	case proto.CmdCheckEnrolled:
		d.checkEnrolled(param)
	case proto.CmdEnrollStart:
		d.enrollStart(param)
	case proto.CmdEnroll1, proto.CmdEnroll2, proto.CmdEnroll3:
		d.enrollStep(cmd)
	case proto.CmdIsPressFinger:
		if d.finger != nil {
			d.ack(0)
		} else {
			d.ack(uint32(proto.NackFingerIsNotPressed))
		}
	case proto.CmdDeleteID:
		if _, ok := d.slots[int(param)]; !ok {
			d.nack(proto.NackInvalidPos)
			return
		}
		delete(d.slots, int(param))
		d.ack(0)
	case proto.CmdDeleteAll:
		d.slots = make(map[int][]byte)
		d.ack(0)
	case proto.CmdVerify1_1:
		d.verify(param, d.captured)
	case proto.CmdIdentify1_N:
		d.identifyCaptured()
	case proto.CmdVerifyTemplate1_1:
		if !d.validSlot(param) {
			d.nack(proto.NackInvalidPos)
			return
		}
		d.expectUpload(cmd, param)
	case proto.CmdIdentifyTemplate1_N, proto.CmdSetTemplate:
		if cmd == proto.CmdSetTemplate && !d.validSlot(param) {
			d.nack(proto.NackInvalidPos)
			return
		}
		d.expectUpload(cmd, param)
	case proto.CmdCaptureFinger:
		if d.finger == nil {
			d.nack(proto.NackFingerIsNotPressed)
			return
		}
		d.captured = d.finger
		d.ack(0)
	case proto.CmdMakeTemplate:
		if d.captured == nil {
			d.nack(proto.NackFingerIsNotPressed)
			return
		}
		d.ack(0)
		d.data(d.captured)
	case proto.CmdGetImage:
		if d.captured == nil {
			d.nack(proto.NackFingerIsNotPressed)
			return
		}
		d.ack(0)
		d.data(image(d.captured, proto.ImageSize))
	case proto.CmdGetRawImage:
		d.ack(0)
		d.data(image(d.finger, proto.RawImageSize))
	case proto.CmdGetTemplate:
		t, ok := d.slots[int(param)]
		if !ok {
			d.nack(proto.NackIsNotUsed)
			return
		}
		d.ack(0)
		d.data(t)
	default:
		d.nack(proto.NackIsNotSupported)
	}
}

func (d *Device) checkEnrolled(param uint32) {
	if !d.validSlot(param) {
		d.nack(proto.NackInvalidPos)
		return
	}
	if _, ok := d.slots[int(param)]; !ok {
		d.nack(proto.NackIsNotUsed)
		return
	}
	d.ack(0)
}

func (d *Device) enrollStart(param uint32) {
	if param != NoSaveSlot {
		if !d.validSlot(param) {
			d.nack(proto.NackInvalidPos)
			return
		}
		if _, ok := d.slots[int(param)]; ok {
			d.nack(proto.NackIsAlreadyUsed)
			return
		}
	}
	d.enrolling, d.enrollID, d.stage = true, param, 1
	d.ack(0)
}

func (d *Device) enrollStep(cmd proto.Command) {
	stage := int(cmd-proto.CmdEnroll1) + 1
	if !d.enrolling || d.stage != stage {
		d.nack(proto.NackTurnErr)
		return
	}
	if d.captured == nil {
		d.nack(proto.NackBadFinger)
		return
	}
	if stage < 3 {
		d.stage++
		d.ack(0)
		return
	}
	d.enrolling = false
	if slot, ok := d.match(d.captured); ok {
		d.nack(proto.ErrorCode(slot))
		return
	}
	if d.enrollID != NoSaveSlot {
		d.slots[int(d.enrollID)] = d.captured
	}
	d.ack(0)
	d.data(d.captured)
}

func (d *Device) verify(param uint32, template []byte) {
	if !d.validSlot(param) {
		d.nack(proto.NackInvalidPos)
		return
	}
	stored, ok := d.slots[int(param)]
	if !ok {
		d.nack(proto.NackIsNotUsed)
		return
	}
	if template == nil || !bytes.Equal(stored, template) {
		d.nack(proto.NackVerifyFailed)
		return
	}
	d.ack(0)
}

func (d *Device) identifyCaptured() {
	if len(d.identify) > 0 {
		result := d.identify[0]
		d.identify = d.identify[1:]
		if result < 0 {
			d.nack(proto.NackIdentifyFailed)
		} else {
			d.ack(uint32(result))
		}
		return
	}
	d.identifyTemplate(d.captured)
}

func (d *Device) identifyTemplate(template []byte) {
	if len(d.slots) == 0 {
		d.nack(proto.NackDBIsEmpty)
		return
	}
	if slot, ok := d.match(template); ok && template != nil {
		d.ack(uint32(slot))
		return
	}
	d.nack(proto.NackIdentifyFailed)
}

func (d *Device) expectUpload(cmd proto.Command, param uint32) {
	d.upload = &upload{cmd: cmd, param: param}
	d.ack(0)
}

func (d *Device) uploaded(u *upload) {
	if u.buf[0] != proto.DataStart0 || u.buf[1] != proto.DataStart1 {
		d.nack(proto.NackCommErr)
		return
	}
	payload := proto.DataPayload(u.buf[2:])
	if !payload.ChecksumValid() {
		d.nack(proto.NackCommErr)
		return
	}
	template := append([]byte(nil), payload.Body()...)
	switch u.cmd {
	case proto.CmdSetTemplate:
		d.slots[int(u.param)] = template
		d.ack(0)
	case proto.CmdVerifyTemplate1_1:
		d.verify(u.param, template)
	case proto.CmdIdentifyTemplate1_N:
		d.identifyTemplate(template)
	}
}

func image(template []byte, size int) []byte {
	img := make([]byte, size)
	var seed byte
	if len(template) > 0 {
		seed = template[0]
	}
	for i := range img {
		img[i] = byte(i) + seed
	}
	return img
}

func (d *Device) read(p []byte) int {
	d.lock.Lock()
	defer d.lock.Unlock()
	n := copy(p, d.out)
	d.out = d.out[n:]
	return n
}

func (d *Device) available() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return len(d.out)
}

// Port is a connection to the simulated device.
type Port struct {
	dev    *Device
	baud   int
	closed bool
}

// Read implements io.Reader. It waits ReadTimeout when nothing is
// available like a UART with read timeout.
func (p *Port) Read(b []byte) (int, error) {
	if p.closed {
		return 0, transport.ErrClosed
	}
	if n := p.dev.read(b); n > 0 {
		return n, nil
	}
	time.Sleep(p.dev.ReadTimeout)
	return p.dev.read(b), nil
}

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) {
	if p.closed {
		return 0, transport.ErrClosed
	}
	p.dev.write(p.baud, b)
	return len(b), nil
}

// Available implements transport.Port.
func (p *Port) Available() int {
	if p.closed {
		return 0
	}
	return p.dev.available()
}

// IsOpen implements transport.Port.
func (p *Port) IsOpen() bool {
	return !p.closed
}

// Close implements io.Closer.
func (p *Port) Close() error {
	p.closed = true
	return nil
}

// NewDemo creates a Device with one enrolled finger and another one on
// the sensor.
func NewDemo(baud int) *Device {
	d := New(baud)
	d.Store(0, FingerTemplate(0))
	d.Press(FingerTemplate(1))
	return d
}
