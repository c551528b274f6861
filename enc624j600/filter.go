// enc624j600/filter.go

package enc624j600

// Filter is one of the receive filters controlled through ERXFCON.
type Filter uint8

const (
	CRCErrorCollection Filter = iota
	RuntErrorCollection
	CRCErrorRejection
	RuntErrorRejection
	UnicastCollection
	NotMeUnicastCollection
	MulticastCollection
	BroadcastCollection
	HashTableCollection
	MagicPacketCollection
	PatternMatchCollection
	numFilters
)

var filterBits = [numFilters]uint16{
	CRCErrorCollection:     ERXFCON_CRCEEN,
	RuntErrorCollection:    ERXFCON_RUNTEEN,
	CRCErrorRejection:      ERXFCON_CRCEN,
	RuntErrorRejection:     ERXFCON_RUNTEN,
	UnicastCollection:      ERXFCON_UCEN,
	NotMeUnicastCollection: ERXFCON_NOTMEEN,
	MulticastCollection:    ERXFCON_MCEN,
	BroadcastCollection:    ERXFCON_BCEN,
	HashTableCollection:    ERXFCON_HTEN,
	MagicPacketCollection:  ERXFCON_MPEN,
	PatternMatchCollection: ERXFCON_PMEN,
}

var filterNames = [numFilters]string{
	"crc-error-collection", "runt-error-collection", "crc-error-rejection",
	"runt-error-rejection", "unicast", "not-me-unicast", "multicast",
	"broadcast", "hash-table", "magic-packet", "pattern-match",
}

func (f Filter) String() string {
	if f >= numFilters {
		return "filter(?)"
	}
	return filterNames[f]
}

// defaultFilters is applied at bring-up: drop frames with CRC or runt
// errors, keep unicast to us and broadcast.
var defaultFilters = [numFilters]bool{
	CRCErrorRejection:   true,
	RuntErrorRejection:  true,
	UnicastCollection:   true,
	BroadcastCollection: true,
}

// ConfigureFilter enables or disables one receive filter. Pattern matching
// needs a pattern and offset programmed first, which the driver does not
// do, so enabling it reports ErrUnsupported.
func (d *Device) ConfigureFilter(f Filter, enable bool) error {
	if f >= numFilters {
		return ErrInvalidArgument
	}
	if enable {
		if f == PatternMatchCollection {
			return ErrUnsupported
		}
		return d.SetBits(ERXFCON, filterBits[f])
	}
	return d.ClearBits(ERXFCON, filterBits[f])
}

func (d *Device) initFilters() error {
	for f, on := range defaultFilters {
		if err := d.ConfigureFilter(Filter(f), on); err != nil {
			return err
		}
	}
	return nil
}

// SetHashTable programs EHT1..EHT4 for the hash table filter. Word 0 holds
// hash bits 0..15.
func (d *Device) SetHashTable(table [4]uint16) error {
	regs := [4]Register{EHT1, EHT2, EHT3, EHT4}
	for i, r := range regs {
		if err := d.WriteRegister(r, table[i]); err != nil {
			return err
		}
	}
	return nil
}
