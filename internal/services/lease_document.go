package services

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"montoit/internal/common"
	"montoit/internal/models"

	"github.com/jung-kurt/gofpdf"
)

// LeaseParties carries what the contract prints about the property and both parties
type LeaseParties struct {
	Property *models.Property
	Owner    *models.User
	Tenant   *models.User
}

// leaseContentHash fingerprints the contractual terms a party signs
func leaseContentHash(lease *models.Lease) string {
	content := strings.Join([]string{
		lease.ID.String(),
		lease.PropertyID.String(),
		lease.OwnerID.String(),
		lease.TenantID.String(),
		strconv.FormatFloat(lease.MonthlyRent, 'f', 0, 64),
		strconv.FormatFloat(lease.Deposit, 'f', 0, 64),
		lease.Currency,
		lease.StartDate.Format(time.DateOnly),
		lease.EndDate.Format(time.DateOnly),
		strconv.Itoa(lease.PaymentDay),
	}, "|")
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// signatureHash binds a signer to the content hash at a point in time
func signatureHash(leaseID, signerID, contentHash string, signedAt time.Time) string {
	sum := sha256.Sum256([]byte(leaseID + "|" + signerID + "|" + contentHash + "|" + signedAt.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])
}

// formatXOF prints an amount with space-separated thousands, e.g. "150 000 XOF"
func formatXOF(amount float64) string {
	digits := strconv.FormatFloat(amount, 'f', 0, 64)
	negative := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	out := b.String() + " " + common.Currency
	if negative {
		return "-" + out
	}
	return out
}

// RenderLeaseContract produces the signed lease contract as a PDF
func RenderLeaseContract(lease *models.Lease, parties LeaseParties, signatures []*models.LeaseSignature) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	marginX := 18.0
	marginY := 20.0
	pdf.SetMargins(marginX, marginY, marginX)
	pdf.SetAutoPageBreak(true, marginY)

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(33, 37, 41)
	pdf.SetXY(marginX, marginY)
	pdf.CellFormat(0, 10, tr("CONTRAT DE BAIL D'HABITATION"), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, tr("Référence : "+lease.ID.String()), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	section := func(title string) {
		pdf.SetFont("Arial", "B", 11)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(0, 8, tr(title), "", 1, "L", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.Ln(2)
	}
	line := func(label, value string) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(55, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 6, tr(value), "", "L", false)
	}

	section("Entre les soussignés")
	if parties.Owner != nil {
		line("Bailleur :", parties.Owner.FullName)
		line("Contact :", parties.Owner.Email)
	}
	if parties.Tenant != nil {
		line("Locataire :", parties.Tenant.FullName)
		line("Contact :", parties.Tenant.Email)
	}
	pdf.Ln(4)

	section("Désignation du bien")
	if p := parties.Property; p != nil {
		line("Bien :", p.Title)
		location := p.Address + ", " + p.City
		if p.Neighborhood != nil {
			location = p.Address + ", " + *p.Neighborhood + ", " + p.City
		}
		line("Adresse :", location)
		line("Type :", p.PropertyType)
		line("Pièces :", fmt.Sprintf("%d chambre(s), %d salle(s) de bain", p.Bedrooms, p.Bathrooms))
		if p.Furnished {
			line("Ameublement :", "meublé")
		}
	}
	pdf.Ln(4)

	section("Conditions financières et durée")
	line("Loyer mensuel :", formatXOF(lease.MonthlyRent))
	line("Dépôt de garantie :", formatXOF(lease.Deposit))
	line("Échéance :", fmt.Sprintf("le %d de chaque mois", lease.PaymentDay))
	line("Prise d'effet :", lease.StartDate.Format("02/01/2006"))
	line("Fin du bail :", lease.EndDate.Format("02/01/2006"))
	pdf.Ln(4)

	section("Signatures électroniques")
	pdf.SetFont("Arial", "B", 9)
	colWidths := []float64{30, 45, 99}
	for i, header := range []string{"Partie", "Date", "Empreinte SHA-256"} {
		pdf.CellFormat(colWidths[i], 7, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(7)
	pdf.SetFont("Courier", "", 7)
	for _, sig := range signatures {
		role := "Locataire"
		if sig.SignerRole == "owner" {
			role = "Bailleur"
		}
		pdf.CellFormat(colWidths[0], 7, tr(role), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[1], 7, sig.SignedAt.UTC().Format("02/01/2006 15:04 UTC"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colWidths[2], 7, sig.SignatureHash, "1", 0, "L", false, 0, "")
		pdf.Ln(7)
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(128, 128, 128)
	pdf.MultiCell(0, 5, tr("Empreinte du contrat : "+leaseContentHash(lease)), "", "L", false)
	pdf.MultiCell(0, 5, tr("Document généré par Mon Toit. Les signatures électroniques ci-dessus engagent les parties."), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render lease contract: %w", err)
	}
	return buf.Bytes(), nil
}
