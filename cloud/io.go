package cloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/notargets/barytrack/particle"
)

// WriteFields writes the tracers as binary records: the count, then each
// record preceded by its length
func (c *Cloud) WriteFields(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint64(c.Len())); err != nil {
		return err
	}
	for e := c.particles.Front(); e != nil; e = e.Next() {
		p := e.Value.(*particle.Particle)
		rec, err := p.MarshalBinary()
		if err != nil {
			return err
		}
		if err = binary.Write(bw, binary.LittleEndian, uint32(len(rec))); err != nil {
			return err
		}
		if _, err = bw.Write(rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadFields adds the tracers of a WriteFields stream to the cloud
func (c *Cloud) ReadFields(r io.Reader) error {
	br := bufio.NewReader(r)
	var n uint64
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("reading %s particle count: %w", c.Name, err)
	}
	for i := uint64(0); i < n; i++ {
		var size uint32
		if err := binary.Read(br, binary.LittleEndian, &size); err != nil {
			return fmt.Errorf("reading %s particle %d: %w", c.Name, i, err)
		}
		if int64(size) > int64(particle.MaxRecordSize) {
			return fmt.Errorf("reading %s particle %d: record of %d bytes exceeds %d",
				c.Name, i, size, particle.MaxRecordSize)
		}
		rec := make([]byte, size)
		if _, err := io.ReadFull(br, rec); err != nil {
			return fmt.Errorf("reading %s particle %d: %w", c.Name, i, err)
		}
		p, err := c.decoder.Decode(rec)
		if err != nil {
			return fmt.Errorf("reading %s particle %d: %w", c.Name, i, err)
		}
		c.Add(p)
	}
	return nil
}

// WriteASCII writes a header naming the record fields, the count, and one
// record per line
func (c *Cloud) WriteASCII(w io.Writer, mode particle.PositionMode) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "// %s %s: %s %s\n", c.Name, mode, particle.PropertyList, TracerPropertyList)
	fmt.Fprintf(bw, "%d\n", c.Len())
	for e := c.particles.Front(); e != nil; e = e.Next() {
		if err := e.Value.(*particle.Particle).WriteASCII(bw, mode); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadASCII adds the tracers of a WriteASCII stream to the cloud
func (c *Cloud) ReadASCII(r io.Reader, mode particle.PositionMode) error {
	var (
		sc     = bufio.NewScanner(r)
		lineNo = 0
		count  = -1
		read   = 0
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if count < 0 {
			n, err := strconv.Atoi(line)
			if err != nil {
				return fmt.Errorf("%s line %d: particle count: %w", c.Name, lineNo, err)
			}
			count = n
			continue
		}
		p, err := c.decoder.ParseASCII(line, mode)
		if err != nil {
			return fmt.Errorf("%s line %d: %w", c.Name, lineNo, err)
		}
		c.Add(p)
		read++
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if count < 0 {
		return fmt.Errorf("%s: missing particle count", c.Name)
	}
	if read != count {
		return fmt.Errorf("%s: read %d particles, header says %d", c.Name, read, count)
	}
	return nil
}

// WritePositions writes the position and cell of each tracer
func (c *Cloud) WritePositions(w io.Writer, mode particle.PositionMode) error {
	bw := bufio.NewWriter(w)
	for e := c.particles.Front(); e != nil; e = e.Next() {
		if err := e.Value.(*particle.Particle).WritePosition(bw, mode); err != nil {
			return err
		}
	}
	return bw.Flush()
}
