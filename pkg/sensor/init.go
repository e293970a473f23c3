package sensor

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/fpsensor.go/pkg/comm"
	"github.com/robotalks/fpsensor.go/pkg/transport"
)

// Initialize brings the device to preferred baud rate and leaves it
// closed. When the device doesn't answer at preferred rate, it's
// reached at the alternate rate and switched over.
func (s *Sensor) Initialize(preferred int) error {
	if !transport.IsSupportedBaud(preferred) {
		return ErrUnsupportedBaud
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	err := s.probe(preferred)
	if comm.IsTransportError(err) {
		return err
	}
	if err != nil {
		alt := transport.AlternateBaud(preferred)
		glog.Infof("no answer at %d baud (%v), trying %d", preferred, err, alt)
		if err = s.probe(alt); err != nil {
			s.disconnect()
			if comm.IsTransportError(err) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrNoDevice, err)
		}
		if err = s.changeBaud(preferred); err != nil {
			return err
		}
		if err = s.open(); err != nil {
			s.disconnect()
			return fmt.Errorf("%w: %v", ErrNoDevice, err)
		}
	}
	s.conn.Flush()
	return s.closeDevice()
}

func (s *Sensor) probe(baud int) error {
	if err := s.connect(baud); err != nil {
		return err
	}
	s.conn.Flush()
	return s.open()
}
