package pca9685

// Register map and fixed wire parameters.
const (
	Address = 0x40

	MODE1      = 0x00
	PRESCALE   = 0xFE
	LED0_ON_L  = 0x06
	LED0_ON_H  = 0x07
	LED0_OFF_L = 0x08
	LED0_OFF_H = 0x09

	// MODE1 values written during power-up
	ModeReset         = 0x00
	ModeSleep         = 0x10
	ModeRestart       = 0x80
	ModeAutoIncrement = 0x20

	Channels     = 16
	Steps        = 4096
	MaxTick      = Steps - 1
	OscillatorHz = 25000000
	CarrierHz    = 50

	prescaleMin = 3
	prescaleMax = 255
)

// channelBase is the first register of the on/off block for channel.
func channelBase(channel int) byte {
	return byte(LED0_ON_L + 4*channel)
}
