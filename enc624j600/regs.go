// enc624j600/regs.go

package enc624j600

// Register is an unbanked special function register address. Every SFR is
// 16 bits wide and is transferred LSB first.
type Register uint8

const (
	ETXST    Register = 0x00 // transmit data start pointer
	ETXLEN   Register = 0x02 // transmit buffer length
	ERXST    Register = 0x04 // receive buffer start address
	ERXTAIL  Register = 0x06 // receive tail pointer
	ERXHEAD  Register = 0x08 // receive head pointer
	EDMAST   Register = 0x0A
	EDMALEN  Register = 0x0C
	EDMADST  Register = 0x0E
	EDMACS   Register = 0x10
	ETXSTAT  Register = 0x12 // transmit status
	ETXWIRE  Register = 0x14 // transmit byte count on wire
	EUDAST   Register = 0x16 // user-defined area start pointer
	EUDAND   Register = 0x18 // user-defined area end pointer
	ESTAT    Register = 0x1A
	EIR      Register = 0x1C
	ECON1    Register = 0x1E
	EHT1     Register = 0x20
	EHT2     Register = 0x22
	EHT3     Register = 0x24
	EHT4     Register = 0x26
	EPMM1    Register = 0x28
	EPMM2    Register = 0x2A
	EPMM3    Register = 0x2C
	EPMM4    Register = 0x2E
	EPMCS    Register = 0x30
	EPMO     Register = 0x32
	ERXFCON  Register = 0x34
	MACON1   Register = 0x40
	MACON2   Register = 0x42
	MABBIPG  Register = 0x44
	MAIPG    Register = 0x46
	MACLCON  Register = 0x48
	MAMXFL   Register = 0x4A
	MICMD    Register = 0x52
	MIREGADR Register = 0x54
	MAADR3   Register = 0x60 // station address bytes 5 and 6
	MAADR2   Register = 0x62 // station address bytes 3 and 4
	MAADR1   Register = 0x64 // station address bytes 1 and 2
	MIWR     Register = 0x66
	MIRD     Register = 0x68
	MISTAT   Register = 0x6A
	EPAUS    Register = 0x6C
	ECON2    Register = 0x6E
	ERXWM    Register = 0x70
	EIE      Register = 0x72
	EIDLED   Register = 0x74
)

// bitFieldCapable reports whether BFSU/BFCU act on the register. The MAC and
// MII registers ignore the bit field instructions and need read-modify-write.
func (r Register) bitFieldCapable() bool {
	return r < MACON1 || r > MISTAT
}

// PHYRegister is a PHY register address reached through the MII management
// interface.
type PHYRegister uint8

const (
	PHCON1  PHYRegister = 0x00
	PHSTAT1 PHYRegister = 0x01
	PHANA   PHYRegister = 0x04
	PHANLPA PHYRegister = 0x05
	PHANE   PHYRegister = 0x06
	PHCON2  PHYRegister = 0x11
	PHSTAT2 PHYRegister = 0x1B
	PHSTAT3 PHYRegister = 0x1F
)

// opcode is an SPI instruction byte.
type opcode uint8

// Single-byte instructions.
const (
	opB0SEL      opcode = 0xC0
	opB1SEL      opcode = 0xC2
	opB2SEL      opcode = 0xC4
	opB3SEL      opcode = 0xC6
	opSETETHRST  opcode = 0xCA
	opFCDISABLE  opcode = 0xE0
	opFCSINGLE   opcode = 0xE2
	opFCMULTIPLE opcode = 0xE4
	opFCCLEAR    opcode = 0xE6
	opSETPKTDEC  opcode = 0xCC
	opDMASTOP    opcode = 0xD2
	opDMACKSUM   opcode = 0xD8
	opDMACKSUMS  opcode = 0xDA
	opDMACOPY    opcode = 0xDC
	opDMACOPYS   opcode = 0xDE
	opSETTXRTS   opcode = 0xD4
	opENABLERX   opcode = 0xE8
	opDISABLERX  opcode = 0xEA
	opSETEIE     opcode = 0xEC
	opCLREIE     opcode = 0xEE
)

// Three-byte pointer instructions.
const (
	opWGPRDPT  opcode = 0x60
	opRGPRDPT  opcode = 0x62
	opWRXRDPT  opcode = 0x64
	opRRXRDPT  opcode = 0x66
	opWUDARDPT opcode = 0x68
	opRUDARDPT opcode = 0x6A
	opWGPWRPT  opcode = 0x6C
	opRGPWRPT  opcode = 0x6E
	opWRXWRPT  opcode = 0x70
	opRRXWRPT  opcode = 0x72
	opWUDAWRPT opcode = 0x74
	opRUDAWRPT opcode = 0x76
)

// Unbanked SFR and SRAM window instructions.
const (
	opRCRU     opcode = 0x20
	opWCRU     opcode = 0x22
	opBFSU     opcode = 0x24
	opBFCU     opcode = 0x26
	opRGPDATA  opcode = 0x28
	opWGPDATA  opcode = 0x2A
	opRRXDATA  opcode = 0x2C
	opWRXDATA  opcode = 0x2E
	opRUDADATA opcode = 0x30
	opWUDADATA opcode = 0x32
)

// Pointer selects one of the six SRAM buffer pointers.
type Pointer uint8

const (
	GPRead Pointer = iota
	GPWrite
	RxRead
	RxWrite
	UDARead
	UDAWrite
	numPointers
)

var pointerOps = [numPointers][2]opcode{
	GPRead:   {opRGPRDPT, opWGPRDPT},
	GPWrite:  {opRGPWRPT, opWGPWRPT},
	RxRead:   {opRRXRDPT, opWRXRDPT},
	RxWrite:  {opRRXWRPT, opWRXWRPT},
	UDARead:  {opRUDARDPT, opWUDARDPT},
	UDAWrite: {opRUDAWRPT, opWUDAWRPT},
}

func (p Pointer) valid() bool { return p < numPointers }
func (p Pointer) readOp() opcode { return pointerOps[p][0] }
func (p Pointer) writeOp() opcode { return pointerOps[p][1] }

// Window selects one of the auto-incrementing SRAM data windows.
type Window uint8

const (
	GPWindow Window = iota
	RxWindow
	UDAWindow
	numWindows
)

var windowOps = [numWindows][2]opcode{
	GPWindow:  {opRGPDATA, opWGPDATA},
	RxWindow:  {opRRXDATA, opWRXDATA},
	UDAWindow: {opRUDADATA, opWUDADATA},
}

func (w Window) valid() bool { return w < numWindows }
func (w Window) readOp() opcode { return windowOps[w][0] }
func (w Window) writeOp() opcode { return windowOps[w][1] }

// ETXSTAT
const (
	ETXSTAT_COLCNT  = 0x000F
	ETXSTAT_CRCBAD  = 0x0010
	ETXSTAT_DEFER   = 0x0080
	ETXSTAT_EXDEFER = 0x0100
	ETXSTAT_MAXCOL  = 0x0200
	ETXSTAT_LATECOL = 0x0400
)

// ESTAT
const (
	ESTAT_PKTCNT = 0x00FF
	ESTAT_PHYLNK = 0x0100
	ESTAT_PHYDPX = 0x0400
	ESTAT_CLKRDY = 0x1000
	ESTAT_RXBUSY = 0x2000
	ESTAT_FCIDLE = 0x4000
	ESTAT_INT    = 0x8000
)

// EIR
const (
	EIR_PCFULIF = 0x0001
	EIR_RXABTIF = 0x0002
	EIR_TXABTIF = 0x0004
	EIR_TXIF    = 0x0008
	EIR_DMAIF   = 0x0020
	EIR_PKTIF   = 0x0040
	EIR_LINKIF  = 0x0800
	EIR_AESIF   = 0x1000
	EIR_HASHIF  = 0x2000
	EIR_MODEXIF = 0x4000
	EIR_CRYPTEN = 0x8000
)

// ECON1
const (
	ECON1_RXEN   = 0x0001
	ECON1_TXRTS  = 0x0002
	ECON1_DMAST  = 0x0020
	ECON1_PKTDEC = 0x0100
)

// ERXFCON
const (
	ERXFCON_BCEN    = 0x0001
	ERXFCON_MCEN    = 0x0002
	ERXFCON_NOTMEEN = 0x0004
	ERXFCON_UCEN    = 0x0008
	ERXFCON_RUNTEN  = 0x0010
	ERXFCON_RUNTEEN = 0x0020
	ERXFCON_CRCEN   = 0x0040
	ERXFCON_CRCEEN  = 0x0080
	ERXFCON_PMEN    = 0x0F00
	ERXFCON_NOTPM   = 0x1000
	ERXFCON_MPEN    = 0x4000
	ERXFCON_HTEN    = 0x8000
)

// MACON1
const (
	MACON1_PASSALL = 0x0002
	MACON1_RXPAUS  = 0x0004
	MACON1_LOOPBK  = 0x0010
)

// MACON2
const (
	MACON2_FULDPX  = 0x0001
	MACON2_HFRMEN  = 0x0004
	MACON2_PHDREN  = 0x0008
	MACON2_TXCRCEN = 0x0010
	MACON2_PADCFG0 = 0x0020
	MACON2_PADCFG  = 0x00E0
	MACON2_NOBKOFF = 0x1000
	MACON2_BPEN    = 0x2000
	MACON2_DEFER   = 0x4000
)

// MICMD and MISTAT
const (
	MICMD_MIIRD   = 0x0001
	MICMD_MIISCAN = 0x0002
	MISTAT_BUSY   = 0x0001
	MISTAT_SCAN   = 0x0002
	MISTAT_NVALID = 0x0004
)

// ECON2
const (
	ECON2_ETHRST = 0x0010
	ECON2_RXRST  = 0x0020
	ECON2_TXRST  = 0x0040
	ECON2_AUTOFC = 0x0080
	ECON2_COCON  = 0x0F00
	ECON2_TXMAC  = 0x2000
	ECON2_STRCH  = 0x4000
	ECON2_ETHEN  = 0x8000
)

// EIE
const (
	EIE_PCFULIE = 0x0001
	EIE_RXABTIE = 0x0002
	EIE_TXABTIE = 0x0004
	EIE_TXIE    = 0x0008
	EIE_DMAIE   = 0x0020
	EIE_PKTIE   = 0x0040
	EIE_LINKIE  = 0x0800
	EIE_INTIE   = 0x8000
)

// PHCON1
const (
	PHCON1_PFULDPX = 0x0100
	PHCON1_RENEG   = 0x0200
	PHCON1_PSLEEP  = 0x0800
	PHCON1_ANEN    = 0x1000
	PHCON1_SPD100  = 0x2000
	PHCON1_PLOOPBK = 0x4000
	PHCON1_PRST    = 0x8000
)

// PHSTAT1
const (
	PHSTAT1_EXTREGS = 0x0001
	PHSTAT1_LLSTAT  = 0x0004
	PHSTAT1_ANABLE  = 0x0008
	PHSTAT1_LRFAULT = 0x0010
	PHSTAT1_ANDONE  = 0x0020
)

// PHANA
const (
	PHANA_ADIEEE  = 0x001F
	PHANA_AD10    = 0x0020
	PHANA_AD10FD  = 0x0040
	PHANA_AD100   = 0x0080
	PHANA_AD100FD = 0x0100
	PHANA_ADPAUS0 = 0x0400
	PHANA_ADPAUS1 = 0x0800
	PHANA_ADFAULT = 0x2000
	PHANA_ADNP    = 0x8000
)

// SRAM layout.
const (
	sramSize   = 0x6000
	txStart    = 0x0000
	rxStart    = 0x2000 // ERXST
	rxEnd      = 0x5FFF
	rxTailInit = 0x5FFE // last even address of the ring
	udaStart   = 0x6000 // past SRAM end, disables UDA wrapping
	udaEnd     = 0x6001
)

// Timing, in microseconds.
const (
	miiSettleDelay   = 30
	resetSettleDelay = 30
	postResetDelay   = 270
)

// Bring-up and MAC configuration values.
const (
	scratchSentinel = 0x1234
	rxWatermark     = 0xAA55 // flow control on at 16320 bytes, off at 8160
	maxFrameLength  = 1518
	ipgFullDuplex   = 0x15
	ipgHalfDuplex   = 0x12
	miiRegAddrPHY   = 0x0100
)
