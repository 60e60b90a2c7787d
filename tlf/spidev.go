package tlf

import (
	"fmt"
	"log"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	SPI_IOC_MAGIC            = 'k'
	SPI_IOC_WR_MODE          = 1
	SPI_IOC_WR_BITS_PER_WORD = 3
	SPI_IOC_WR_MAX_SPEED_HZ  = 4
	SPI_IOC_RD_MAX_SPEED_HZ  = 4

	SPI_MODE_1 = 0x01 // CPHA=1, CPOL=0
)

// spiIocTransfer mirrors struct spi_ioc_transfer from linux/spi/spidev.h.
type spiIocTransfer struct {
	txBuf       uint64
	rxBuf       uint64
	len         uint32
	speedHz     uint32
	delayUsecs  uint16
	bitsPerWord uint8
	csChange    uint8
	txNbits     uint8
	rxNbits     uint8
	wordDelay   uint8
	pad         uint8
}

func spiIocMessage(n uint32) uint32 {
	return ioc(_IOC_WRITE, SPI_IOC_MAGIC, 0, n*uint32(unsafe.Sizeof(spiIocTransfer{})))
}

// SPIDev is a Transferer on a Linux spidev node, e.g. one exposed by a
// debug adapter bridged to the kit's QSPI2 lines.
type SPIDev struct {
	fd    int
	speed uint32
}

// OpenSPIDev opens device in SPI mode 1, 8 bits per word, at speed Hz.
func OpenSPIDev(device string, speed uint32) (*SPIDev, error) {
	fd, err := unix.Open(device, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("couldn't open %s: %v", device, err)
	}
	d := &SPIDev{fd: fd, speed: speed}

	mode := uint8(SPI_MODE_1)
	bitsPerWord := uint8(8)
	settings := []struct {
		name string
		req  uint32
		arg  unsafe.Pointer
	}{
		{"mode", iow(SPI_IOC_MAGIC, SPI_IOC_WR_MODE, mode), unsafe.Pointer(&mode)},
		{"bits per word", iow(SPI_IOC_MAGIC, SPI_IOC_WR_BITS_PER_WORD, bitsPerWord), unsafe.Pointer(&bitsPerWord)},
		{"speed", iow(SPI_IOC_MAGIC, SPI_IOC_WR_MAX_SPEED_HZ, speed), unsafe.Pointer(&speed)},
	}
	for _, s := range settings {
		err = ioctlPtr(fd, s.req, s.arg)
		if err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("couldn't set SPI %s on %s: %v", s.name, device, err)
		}
	}
	// the driver may round the speed down
	err = ioctlPtr(fd, ior(SPI_IOC_MAGIC, SPI_IOC_RD_MAX_SPEED_HZ, d.speed), unsafe.Pointer(&d.speed))
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("couldn't read SPI speed on %s: %v", device, err)
	}
	log.Printf("Opened %s at %d Hz", device, d.speed)
	return d, nil
}

// Transfer sends w MSB first in one chip select cycle.
func (d *SPIDev) Transfer(w uint16) (uint16, error) {
	tx := [2]byte{byte(w >> 8), byte(w)}
	var rx [2]byte
	tr := spiIocTransfer{
		txBuf:       uint64(uintptr(unsafe.Pointer(&tx[0]))),
		rxBuf:       uint64(uintptr(unsafe.Pointer(&rx[0]))),
		len:         2,
		speedHz:     d.speed,
		bitsPerWord: 8,
	}
	err := ioctlPtr(d.fd, spiIocMessage(1), unsafe.Pointer(&tr))
	if err != nil {
		return 0, fmt.Errorf("SPI transfer failed: %v", err)
	}
	return uint16(rx[0])<<8 | uint16(rx[1]), nil
}

func (d *SPIDev) Close() error {
	return unix.Close(d.fd)
}
