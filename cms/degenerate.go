package cms

import (
	"crypto/x509"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// DegenerateCertificate wraps cert in a SignerInfo-less SignedData (RFC 5652
// §5.1 explicitly allows an empty signerInfos SET), the shape PDF viewers
// expect for a bare "certificate carrier" such as a /Cert array entry. It
// carries no signature and no signed content, only the certificate itself.
func DegenerateCertificate(cert *x509.Certificate) ([]byte, error) {
	if cert == nil {
		return nil, fmt.Errorf("cms: certificate must not be nil")
	}

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // ContentInfo
		b.AddASN1ObjectIdentifier(OIDSignedData)
		b.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) { // [0] EXPLICIT content
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // SignedData
				b.AddASN1Int64(1) // version
				b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) {}) // digestAlgorithms: empty
				b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // encapContentInfo
					b.AddASN1ObjectIdentifier(OIDData)
				})
				b.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) { // [0] IMPLICIT CertificateSet
					b.AddBytes(cert.Raw)
				})
				b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) {}) // signerInfos: empty
			})
		})
	})

	return b.Bytes()
}
