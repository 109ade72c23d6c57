package serial

import (
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo holds details about a serial port.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// Label is the one-line description shown in pickers and `pshtest ports`.
func (p PortInfo) Label() string {
	if !p.IsUSB {
		return p.Name
	}
	desc := fmt.Sprintf("%s [%s:%s]", p.Name, p.VID, p.PID)
	if p.Product != "" {
		desc += " " + p.Product
	}
	if p.SerialNumber != "" {
		desc += " sn=" + p.SerialNumber
	}
	return desc
}

// IsSTLink reports whether the port belongs to an ST-LINK probe's virtual
// COM port, the usual console of the STM32 boards.
func (p PortInfo) IsSTLink() bool {
	return strings.EqualFold(p.VID, "0483")
}

// ListPorts returns available serial ports, USB ports first.
func ListPorts() ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}

	var result []PortInfo
	for _, p := range ports {
		result = append(result, PortInfo{
			Name:         p.Name,
			IsUSB:        p.IsUSB,
			VID:          p.VID,
			PID:          p.PID,
			SerialNumber: p.SerialNumber,
			Product:      p.Product,
		})
	}
	SortPorts(result)
	return result, nil
}

// SortPorts orders ports with USB devices first, then by name.
func SortPorts(ports []PortInfo) {
	sort.SliceStable(ports, func(i, j int) bool {
		if ports[i].IsUSB != ports[j].IsUSB {
			return ports[i].IsUSB
		}
		return ports[i].Name < ports[j].Name
	})
}
