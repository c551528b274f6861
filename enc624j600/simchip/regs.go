// enc624j600/simchip/regs.go

package simchip

const sramSize = 0x6000

// SFR addresses.
const (
	regETXST    = 0x00
	regETXLEN   = 0x02
	regERXST    = 0x04
	regERXTAIL  = 0x06
	regERXHEAD  = 0x08
	regETXSTAT  = 0x12
	regETXWIRE  = 0x14
	regEUDAST   = 0x16
	regEUDAND   = 0x18
	regESTAT    = 0x1A
	regEIR      = 0x1C
	regECON1    = 0x1E
	regERXFCON  = 0x34
	regMACON1   = 0x40
	regMACON2   = 0x42
	regMABBIPG  = 0x44
	regMAIPG    = 0x46
	regMACLCON  = 0x48
	regMAMXFL   = 0x4A
	regMICMD    = 0x52
	regMIREGADR = 0x54
	regMAADR3   = 0x60
	regMAADR2   = 0x62
	regMAADR1   = 0x64
	regMIWR     = 0x66
	regMIRD     = 0x68
	regMISTAT   = 0x6A
	regECON2    = 0x6E
	regERXWM    = 0x70
	regEIE      = 0x72
	regEIDLED   = 0x74
)

// PHY addresses.
const (
	phyPHCON1  = 0x00
	phyPHSTAT1 = 0x01
	phyPHANA   = 0x04
)

// Instructions.
const (
	opRCRU      = 0x20
	opWCRU      = 0x22
	opBFSU      = 0x24
	opBFCU      = 0x26
	opRGPDATA   = 0x28
	opWGPDATA   = 0x2A
	opRRXDATA   = 0x2C
	opWRXDATA   = 0x2E
	opRUDADATA  = 0x30
	opWUDADATA  = 0x32
	opPtrFirst  = 0x60
	opPtrLast   = 0x77
	opSETETHRST = 0xCA
	opSETPKTDEC = 0xCC
	opSETTXRTS  = 0xD4
	opENABLERX  = 0xE8
	opDISABLERX = 0xEA
	opSETEIE    = 0xEC
	opCLREIE    = 0xEE
)

// Buffer pointers, in the order the pointer opcodes encode them.
const (
	ptrGPRD = iota
	ptrRXRD
	ptrUDARD
	ptrGPWR
	ptrRXWR
	ptrUDAWR
	numPtrs
)

// Exported pointer indexes for Pointer.
const (
	GPRead   = ptrGPRD
	GPWrite  = ptrGPWR
	RxRead   = ptrRXRD
	RxWrite  = ptrRXWR
	UDARead  = ptrUDARD
	UDAWrite = ptrUDAWR
)

// Register bits the model acts on.
const (
	estatPKTCNT = 0x00FF
	estatPHYLNK = 0x0100
	estatPHYDPX = 0x0400
	estatCLKRDY = 0x1000
	estatINT    = 0x8000

	eirPCFULIF = 0x0001
	eirRXABTIF = 0x0002
	eirTXABTIF = 0x0004
	eirTXIF    = 0x0008
	eirPKTIF   = 0x0040
	eirLINKIF  = 0x0800

	econ1RXEN   = 0x0001
	econ1TXRTS  = 0x0002
	econ1PKTDEC = 0x0100

	econ2TXMAC = 0x2000

	eieINTIE = 0x8000

	erxfconBCEN    = 0x0001
	erxfconMCEN    = 0x0002
	erxfconNOTMEEN = 0x0004
	erxfconUCEN    = 0x0008
	erxfconRUNTEN  = 0x0010
	erxfconRUNTEEN = 0x0020

	macon1LOOPBK = 0x0010
	macon2PADCFG = 0x00E0

	micmdMIIRD = 0x0001
	mistatBUSY = 0x01

	etxstatEXDEFER = 0x0100
	etxstatMAXCOL  = 0x0200
	etxstatLATECOL = 0x0400

	phcon1PLOOPBK = 0x4000
	phcon1PRST    = 0x8000
	phstat1LLSTAT = 0x0004
	phstat1ANDONE = 0x0020

	rsvRXOK      = 0x0080
	rsvMULTICAST = 0x0100
	rsvBROADCAST = 0x0200
)

func isSingleByte(op byte) bool { return op >= 0xC0 }

// bitFieldCapable reports whether BFSU/BFCU reach register byte a.
func bitFieldCapable(a byte) bool { return a < regMACON1 || a > regMISTAT+1 }

// pointerIndex decodes a pointer opcode.
func pointerIndex(op byte) (i int, write bool) {
	d := int(op - opPtrFirst)
	return d / 4, d%4 == 0
}
