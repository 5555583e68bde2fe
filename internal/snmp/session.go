// Package snmp implements the DataSource backend polling routers directly
// over SNMPv2c rather than through a time-series database.
package snmp

import (
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"
)

// WalkFunc receives one row of a bulk-walk: the last OID arc (the table
// index) and its value rendered as a string.
type WalkFunc func(index string, value string)

// Session is the subset of gosnmp's API the poller depends on, narrowed
// so host polling can be exercised against a fake in tests without a
// live device.
type Session interface {
	Get(oid string) (string, error)
	BulkWalk(oid string, fn WalkFunc) error
	Close() error
}

type gosnmpSession struct {
	conn *gosnmp.GoSNMP
}

// Dial opens a new SNMPv2c session against host.
func Dial(host, community string) (Session, error) {
	conn := &gosnmp.GoSNMP{
		Target:    host,
		Port:      161,
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   5 * time.Second,
		Retries:   1,
	}
	if err := conn.Connect(); err != nil {
		return nil, fmt.Errorf("snmp: connect to %s: %w", host, err)
	}
	return &gosnmpSession{conn: conn}, nil
}

func (s *gosnmpSession) Get(oid string) (string, error) {
	result, err := s.conn.Get([]string{oid})
	if err != nil {
		return "", err
	}
	if len(result.Variables) == 0 {
		return "", fmt.Errorf("snmp: no value for %s", oid)
	}
	return renderValue(result.Variables[0]), nil
}

func (s *gosnmpSession) BulkWalk(oid string, fn WalkFunc) error {
	return s.conn.BulkWalk(oid, func(pdu gosnmp.SnmpPDU) error {
		index := lastArc(pdu.Name)
		fn(index, renderValue(pdu))
		return nil
	})
}

func (s *gosnmpSession) Close() error {
	if s.conn.Conn == nil {
		return nil
	}
	return s.conn.Conn.Close()
}

func renderValue(pdu gosnmp.SnmpPDU) string {
	switch pdu.Type {
	case gosnmp.OctetString:
		if b, ok := pdu.Value.([]byte); ok {
			return string(b)
		}
	case gosnmp.Counter32, gosnmp.Counter64, gosnmp.Gauge32, gosnmp.Integer:
		return fmt.Sprintf("%d", gosnmp.ToBigInt(pdu.Value))
	}
	return fmt.Sprintf("%v", pdu.Value)
}

// lastArc returns the final dotted component of an OID string, which
// gosnmp tables use as the index tying a value back to its interface.
func lastArc(oid string) string {
	for i := len(oid) - 1; i >= 0; i-- {
		if oid[i] == '.' {
			return oid[i+1:]
		}
	}
	return oid
}
