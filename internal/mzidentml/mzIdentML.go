package mzidentml

import (
	"encoding/xml"
	"errors"
)

// Types for parsing mzIdentML

// MzIdentML holds only the part of mzIdentML files
// in which we are interested
type MzIdentML struct {
	pepID2Idx      map[string]int
	evidenceID2Idx map[string]int
	dbSeqID2Idx    map[string]int
	spectraID2Idx  map[string]int
	identList      []identRef
	content        mzIdentMLContent
}

type identRef struct {
	specResultIdx int // Index into SpectrumIdentificationResult
	specItemIdx   int // Index into SpectrumIdentificationItem
}

// Identification is one spectrum identification item (a PSM)
type Identification struct {
	PepSeq      string
	ModSeq      string // PepSeq with mass deltas, e.g. PEPM[15.9949]IDE
	PepID       string
	Charge      int
	Rank        int
	SpecID      string
	Scan        int
	SpectraFile string   // location of the spectra data file
	Accessions  []string // proteins the peptide maps to
	// Decoy is taken from the isDecoy attribute of the peptide evidence.
	// DecoyKnown is false when no evidence carried the attribute.
	Decoy      bool
	DecoyKnown bool
	Cv         []CvParam
}

type mzIdentMLContent struct {
	XMLName                      xml.Name                       `xml:"MzIdentML"`
	DBSequence                   []dbSequence                   `xml:"SequenceCollection>DBSequence"`
	Peptide                      []peptide                      `xml:"SequenceCollection>Peptide"`
	PeptideEvidence              []peptideEvidence              `xml:"SequenceCollection>PeptideEvidence"`
	SpectraData                  []spectraData                  `xml:"DataCollection>Inputs>SpectraData"`
	SpectrumIdentificationResult []spectrumIdentificationResult `xml:"DataCollection>AnalysisData>SpectrumIdentificationList>SpectrumIdentificationResult"`
}

type dbSequence struct {
	ID        string `xml:"id,attr"`
	Accession string `xml:"accession,attr"`
}

type peptide struct {
	ID              string `xml:"id,attr"`
	PeptideSequence string
	Modification    []modification
}

type modification struct {
	// Residue position, 0 is the N-terminus and len+1 the C-terminus.
	Location              int     `xml:"location,attr"`
	MonoisotopicMassDelta float64 `xml:"monoisotopicMassDelta,attr"`
}

type peptideEvidence struct {
	ID            string `xml:"id,attr"`
	DBSequenceRef string `xml:"dBSequence_ref,attr"`
	PeptideRef    string `xml:"peptide_ref,attr"`
	// Kept as string, absent and "false" differ
	IsDecoy string `xml:"isDecoy,attr"`
}

type spectraData struct {
	ID       string `xml:"id,attr"`
	Location string `xml:"location,attr"`
}

type spectrumIdentificationResult struct {
	SpectrumID                 string `xml:"spectrumID,attr"`
	SpectraDataRef             string `xml:"spectraData_ref,attr"`
	SpectrumIdentificationItem []spectrumIdentificationItem
	CvPar                      []CvParam `xml:"cvParam"`
}

type spectrumIdentificationItem struct {
	ChargeState        int                  `xml:"chargeState,attr"`
	Rank               int                  `xml:"rank,attr"`
	PeptideRef         string               `xml:"peptide_ref,attr"`
	PeptideEvidenceRef []peptideEvidenceRef `xml:"PeptideEvidenceRef"`
	CvPar              []CvParam            `xml:"cvParam"`
}

type peptideEvidenceRef struct {
	PeptideEvidenceRef string `xml:"peptideEvidence_ref,attr"`
}

// CvParam is a controlled vocabulary term with its value
type CvParam struct {
	Accession     string `xml:"accession,attr"`
	Name          string `xml:"name,attr"`
	Value         string `xml:"value,attr"`
	UnitAccession string `xml:"unitAccession,attr"`
}

var (
	ErrInvalidIdentIndex = errors.New("mzIdentML: invalid identification index")
	ErrUnknownPeptide    = errors.New("mzIdentML: reference to unknown peptide")
)
