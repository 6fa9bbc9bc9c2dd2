package mzidentml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// CV term for the scan number of a spectrum identification result
const cvScanNumbers = `MS:1001115`

// Read reads mzIdentML content from io.reader
func Read(reader io.Reader) (MzIdentML, error) {
	var mzIdentML MzIdentML
	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel
	err := d.Decode(&mzIdentML.content)
	if err != nil {
		return mzIdentML, err
	}
	mzIdentML.buildIndices()
	mzIdentML.buildIdentList()
	return mzIdentML, err
}

func (m *MzIdentML) buildIndices() {
	c := &m.content
	m.pepID2Idx = make(map[string]int, len(c.Peptide))
	for i, p := range c.Peptide {
		m.pepID2Idx[p.ID] = i
	}
	m.evidenceID2Idx = make(map[string]int, len(c.PeptideEvidence))
	for i, e := range c.PeptideEvidence {
		m.evidenceID2Idx[e.ID] = i
	}
	m.dbSeqID2Idx = make(map[string]int, len(c.DBSequence))
	for i, s := range c.DBSequence {
		m.dbSeqID2Idx[s.ID] = i
	}
	m.spectraID2Idx = make(map[string]int, len(c.SpectraData))
	for i, s := range c.SpectraData {
		m.spectraID2Idx[s.ID] = i
	}
}

func (m *MzIdentML) buildIdentList() {
	for i := range m.content.SpectrumIdentificationResult {
		for j := range m.content.SpectrumIdentificationResult[i].SpectrumIdentificationItem {
			m.identList = append(m.identList, identRef{specResultIdx: i, specItemIdx: j})
		}
	}
}

// NumIdents returns the total number of identifications in the mzIdentML file
// Note that for some spectra, multiple identifications may be present
// The identifications can be accessed using the Ident() method, which takes
// an index as argument. The index runs from 0 to NumIdents()-1
func (m *MzIdentML) NumIdents() int {
	return len(m.identList)
}

// Ident returns a spectrum identification from the mzIdentML file.
// Parameter i is the index of the identification to return. The index runs
// from 0 to NumIdents()-1
func (m *MzIdentML) Ident(i int) (Identification, error) {
	var ident Identification

	if i < 0 || i >= len(m.identList) {
		return ident, ErrInvalidIdentIndex
	}
	result := &m.content.SpectrumIdentificationResult[m.identList[i].specResultIdx]
	item := &result.SpectrumIdentificationItem[m.identList[i].specItemIdx]

	pepIdx, ok := m.pepID2Idx[item.PeptideRef]
	if !ok {
		return ident, fmt.Errorf("%w %q", ErrUnknownPeptide, item.PeptideRef)
	}
	pep := &m.content.Peptide[pepIdx]
	ident.PepSeq = pep.PeptideSequence
	ident.ModSeq = modifiedSequence(pep)
	ident.PepID = pep.ID
	ident.Charge = item.ChargeState
	ident.Rank = item.Rank
	if ident.Rank == 0 {
		ident.Rank = 1
	}
	ident.SpecID = result.SpectrumID
	ident.Scan = scanNumber(result)
	if k, ok := m.spectraID2Idx[result.SpectraDataRef]; ok {
		ident.SpectraFile = m.content.SpectraData[k].Location
	}

	decoys := 0
	for _, ref := range item.PeptideEvidenceRef {
		k, ok := m.evidenceID2Idx[ref.PeptideEvidenceRef]
		if !ok {
			continue
		}
		ev := &m.content.PeptideEvidence[k]
		if s, ok := m.dbSeqID2Idx[ev.DBSequenceRef]; ok {
			ident.Accessions = append(ident.Accessions, m.content.DBSequence[s].Accession)
		}
		if ev.IsDecoy != "" {
			ident.DecoyKnown = true
			if isDecoy, _ := strconv.ParseBool(ev.IsDecoy); isDecoy {
				decoys++
			}
		}
	}
	ident.Decoy = ident.DecoyKnown && decoys == len(item.PeptideEvidenceRef)

	// The scores are in the CV terms of the identification
	ident.Cv = append(ident.Cv, item.CvPar...)
	return ident, nil
}

// modifiedSequence inserts the mass delta of each modification after the
// residue it applies to. N-terminal deltas go in front.
func modifiedSequence(p *peptide) string {
	if len(p.Modification) == 0 {
		return p.PeptideSequence
	}
	deltas := make(map[int]float64)
	for _, mod := range p.Modification {
		loc := mod.Location
		if loc > len(p.PeptideSequence) {
			loc = len(p.PeptideSequence)
		}
		deltas[loc] += mod.MonoisotopicMassDelta
	}
	var b strings.Builder
	writeDelta := func(loc int) {
		if d, ok := deltas[loc]; ok {
			b.WriteString("[" + strconv.FormatFloat(d, 'f', 4, 64) + "]")
		}
	}
	writeDelta(0)
	for i, r := range p.PeptideSequence {
		b.WriteRune(r)
		writeDelta(i + 1)
	}
	return b.String()
}

// scanNumber finds the scan number of a result, from the scan number CV
// term or from a "scan=" or "index=" item of the spectrum id. It returns
// -1 if there is none.
func scanNumber(r *spectrumIdentificationResult) int {
	for _, cv := range r.CvPar {
		if cv.Accession == cvScanNumbers {
			if n, err := strconv.Atoi(strings.TrimSpace(cv.Value)); err == nil {
				return n
			}
		}
	}
	index := -1
	for _, f := range strings.Fields(r.SpectrumID) {
		key, val, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			continue
		}
		switch key {
		case "scan":
			return n
		case "index":
			index = n
		}
	}
	return index
}
