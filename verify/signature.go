package verify

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"io"

	"github.com/digitorus/pdf"
	"github.com/digitorus/timestamp"
	"github.com/govbr-pades/pades/cms"
	"github.com/govbr-pades/pades/extract"
	"github.com/govbr-pades/pades/revocation"
)

// VerifySignature processes a single digital signature found in the PDF.
func VerifySignature(v pdf.Value, file io.ReaderAt, fileSize int64, options *VerifyOptions) (*Signer, error) {
	sig := &extract.Signature{Obj: v, File: file}

	signer := NewSigner()
	signer.Name = sig.Name()
	signer.Reason = sig.Reason()
	signer.Location = sig.Location()
	signer.ContactInfo = sig.ContactInfo()

	// Check for DocMDP and incremental updates
	if err := checkDocMDP(v, fileSize, signer); err != nil {
		signer.ValidationErrors = append(signer.ValidationErrors, &ValidationError{Msg: fmt.Sprintf("DocMDP validation failed: %v", err)})
		return signer, nil
	}

	// Parse signature time if available from the signature object
	if t, ok := sig.SigningTime(); ok {
		signer.SignatureTime = &t
	}

	// Parse the CMS SignedData.
	rawSignature := sig.Contents()
	sd, err := cms.ParseSignedData(rawSignature)
	if err != nil {
		return signer, fmt.Errorf("failed to parse CMS SignedData: %w", err)
	}
	if len(sd.SignerInfos) == 0 {
		return signer, fmt.Errorf("CMS SignedData carries no SignerInfo")
	}

	isDocTimeStamp := sig.IsDocumentTimestamp()

	if isDocTimeStamp {
		// DocTimeStamp: sd.Content carries the TSTInfo (embedded, not detached).
		// We verify the PDF bytes match the TSTInfo MessageImprint.
		pdfBytes, err := readByteRange(v, file)
		if err != nil {
			signer.ValidationErrors = append(signer.ValidationErrors, &ValidationError{Msg: fmt.Sprintf("Failed to read ByteRange: %v", err)})
			return signer, nil
		}

		// Parse TSTInfo to check MessageImprint.
		// We parse the original token because timestamp.Parse expects ContentInfo,
		// whereas sd.Content is the inner TSTInfo.
		ts, err := timestamp.Parse(rawSignature)
		if err != nil {
			signer.ValidationErrors = append(signer.ValidationErrors, &ValidationError{Msg: fmt.Sprintf("Failed to parse TSTInfo: %v", err)})
			return signer, nil
		}
		signer.TimeStamp = ts

		// Verify hash of PDF bytes vs MessageImprint
		h := ts.HashAlgorithm.New()
		h.Write(pdfBytes)
		if !bytes.Equal(h.Sum(nil), ts.HashedMessage) {
			signer.ValidationErrors = append(signer.ValidationErrors, &ValidationError{Msg: "timestamp hash does not match"})
			return signer, nil
		}

		// Verify reference to the previous signature (if available).
		// For a DocTimeStamp, if there are previous signatures, the ByteRange
		// covers them. So the hash check above implicitly validates the integrity
		// of the previous state.

		// Verify the TSTInfo signature (standard verification on embedded content)
		// We skip processTimestamp as the timestamp IS the content, not an attribute.
		if err := verifySignature(sd, sd.Content, signer); err != nil {
			signer.ValidationErrors = append(signer.ValidationErrors, &InvalidSignatureError{Msg: fmt.Sprintf("Failed to verify timestamp signature: %v", err)})
			return signer, nil
		}

	} else {
		// Standard Detached Signature: the signed content is the PDF ByteRange.
		pdfBytes, err := readByteRange(v, file)
		if err != nil {
			signer.ValidationErrors = append(signer.ValidationErrors, &ValidationError{Msg: fmt.Sprintf("Failed to process ByteRange: %v", err)})
			return signer, nil
		}

		// Process timestamp if present (as an unsigned attribute)
		if err := processTimestamp(sd, signer); err != nil {
			signer.ValidationErrors = append(signer.ValidationErrors, &ValidationError{Msg: fmt.Sprintf("Failed to process timestamp: %v", err)})
			return signer, nil
		}

		// Verify the digital signature
		if err := verifySignature(sd, pdfBytes, signer); err != nil {
			signer.ValidationErrors = append(signer.ValidationErrors, &InvalidSignatureError{Msg: fmt.Sprintf("Failed to verify signature: %v", err)})
			return signer, nil
		}
	}

	// Process certificate chains and revocation
	var revInfo revocation.InfoArchival
	if attr, ok := sd.SignerInfos[0].SignedAttribute(cms.OIDRevocationInfoArchival); ok {
		_ = asn1.Unmarshal(attr.Value.FullBytes, &revInfo)
	}

	// Recover the signature's declared ICP-Brasil policy OID, if any, so
	// callers can evaluate it against an LPA via the policy package.
	if attr, ok := sd.SignerInfos[0].SignedAttribute(cms.OIDSignaturePolicyID); ok {
		var policyOID asn1.ObjectIdentifier
		_ = asn1.Unmarshal(attr.Value.FullBytes, &policyOID)
		signer.PolicyOID = policyOID
	}

	certErrorMsg, err := buildCertificateChainsWithOptions(sd, signer, revInfo, options)
	if err != nil {
		// This means critical failure in chain building (e.g. malformed certs that crash x509)
		return signer, fmt.Errorf("failed to build certificate chains: %w", err)
	}
	if certErrorMsg != "" {
		signer.ValidationErrors = append(signer.ValidationErrors, &ValidationError{Msg: certErrorMsg})
	}

	// Check algorithm constraints
	if algoErr := verifyAlgorithmAndKeySize(signer, sd, options); algoErr != nil {
		signer.ValidationErrors = append(signer.ValidationErrors, &PolicyError{Msg: fmt.Sprintf("Algorithm verification failed: %v", algoErr)})
		return signer, nil
	}

	return signer, nil
}

func verifyAlgorithmAndKeySize(signer *Signer, sd *cms.SignedData, options *VerifyOptions) error {
	if len(signer.Certificates) == 0 {
		return nil
	}

	// Helper to verify a single certificate
	verifyCert := func(cert *x509.Certificate, isLeaf bool) error {
		if cert == nil {
			return nil
		}

		// 1. Verify Allowed Algorithms
		if len(options.AllowedAlgorithms) > 0 {
			allowed := false
			for _, algo := range options.AllowedAlgorithms {
				if cert.PublicKeyAlgorithm == algo {
					allowed = true
					break
				}
			}
			if !allowed {
				return fmt.Errorf("public key algorithm %s is not allowed (isLeaf: %v)", cert.PublicKeyAlgorithm, isLeaf)
			}
		}

		// 2. Verify Minimum Key Size
		switch pub := cert.PublicKey.(type) {
		case *rsa.PublicKey:
			if options.MinRSAKeySize > 0 && pub.N.BitLen() < options.MinRSAKeySize {
				return fmt.Errorf("RSA key size %d is less than minimum %d (isLeaf: %v)", pub.N.BitLen(), options.MinRSAKeySize, isLeaf)
			}
		case *ecdsa.PublicKey:
			if options.MinECDSAKeySize > 0 && pub.Params().BitSize < options.MinECDSAKeySize {
				return fmt.Errorf("ECDSA key size %d is less than minimum %d (isLeaf: %v)", pub.Params().BitSize, options.MinECDSAKeySize, isLeaf)
			}
		}
		return nil
	}

	// Identify the leaf signer via the SignerInfo's SignerIdentifier
	var leafCert *x509.Certificate
	if len(sd.SignerInfos) > 0 {
		if cert, err := cms.SelectSigner(sd.SignerInfos[0].SID, sd.Certificates); err == nil {
			leafCert = cert
		}
	}
	if leafCert == nil && len(sd.Certificates) > 0 {
		leafCert = sd.Certificates[0]
	}

	if options.ValidateFullChain {
		// Verify all certificates
		for _, certWrapper := range signer.Certificates {
			isLeaf := (certWrapper.Certificate == leafCert)
			if err := verifyCert(certWrapper.Certificate, isLeaf); err != nil {
				return err
			}
		}
	} else {
		// Only verify the leaf
		if leafCert != nil {
			if err := verifyCert(leafCert, true); err != nil {
				return err
			}
		}
	}

	return nil
}

// readByteRange reads the content defined by ByteRange.
func readByteRange(v pdf.Value, file io.ReaderAt) ([]byte, error) {
	var parts []io.Reader
	var totalSize int64

	br := v.Key("ByteRange")
	if br.Len()%2 != 0 {
		return nil, fmt.Errorf("invalid ByteRange length: %d", br.Len())
	}

	for i := 0; i < br.Len(); i += 2 {
		offset := br.Index(i).Int64()
		length := br.Index(i + 1).Int64()

		parts = append(parts, io.NewSectionReader(file, offset, length))
		totalSize += length
	}

	// Pre-allocate the content buffer
	content := make([]byte, totalSize)

	// Use MultiReader to treat the separate ranges as a single continuous stream
	reader := io.MultiReader(parts...)

	_, err := io.ReadFull(reader, content)
	if err != nil {
		return nil, fmt.Errorf("failed to read signed content: %v", err)
	}

	return content, nil
}

// processTimestamp processes timestamp information carried as a signer's
// unsigned attribute (RFC 3161 id-aa-timeStampToken).
func processTimestamp(sd *cms.SignedData, signer *Signer) error {
	for _, si := range sd.SignerInfos {
		attr, ok := cms.Find(si.UnsignedAttrs, cms.OIDSignatureTimeStampToken)
		if !ok {
			continue
		}

		ts, err := timestamp.Parse(attr.Value.FullBytes)
		if err != nil {
			return fmt.Errorf("failed to parse timestamp: %v", err)
		}
		signer.TimeStamp = ts

		// The timestamp's MessageImprint covers the signer's own signature
		// bytes, not the PDF content.
		h := signer.TimeStamp.HashAlgorithm.New()
		h.Write(si.Signature)
		if !bytes.Equal(h.Sum(nil), signer.TimeStamp.HashedMessage) {
			return fmt.Errorf("timestamp hash does not match")
		}
		break
	}
	return nil
}

// verifySignature cryptographically verifies the signer's signature over
// content (ByteRange bytes for a detached signature, TSTInfo bytes for a
// DocTimeStamp). It does not establish certificate trust; that is
// buildCertificateChainsWithOptions's job.
func verifySignature(sd *cms.SignedData, content []byte, signer *Signer) error {
	if _, err := sd.VerifySignerAt(0, content); err != nil {
		return fmt.Errorf("signature verification failed: %v", err)
	}
	signer.ValidSignature = true
	return nil
}

// checkDocMDP verifies Document Modification Detection and Prevention permissions.
func checkDocMDP(v pdf.Value, fileSize int64, signer *Signer) error {
	refs := v.Key("Reference")
	if refs.IsNull() || refs.Kind() != pdf.Array {
		return nil
	}

	for i := 0; i < refs.Len(); i++ {
		ref := refs.Index(i)
		transform := ref.Key("TransformMethod")
		if transform.Name() == "DocMDP" {
			// Found DocMDP
			perms := 2 // Default
			params := ref.Key("TransformParams")
			if !params.IsNull() {
				p := params.Key("P")
				if !p.IsNull() {
					perms = int(p.Int64())
				}
			}

			// Check for incremental updates
			br := v.Key("ByteRange")
			if br.Len() < 4 {
				return nil // Should fail elsewhere if ByteRange is bad
			}

			// End of the signed range
			signedEnd := br.Index(2).Int64() + br.Index(3).Int64()

			// Detect if there are modifications (bytes appended)
			if fileSize > signedEnd {
				// We have an incremental update

				// P=1: No changes permitted
				if perms == 1 {
					// Strictly invalid
					return fmt.Errorf("incremental update found but P=1 (NoChanges) permits none")
				}

				// P=2: Form filling permitted
				if perms == 2 {
					// TODO: validate that the update only contains form moves/values or signature.
					signer.TimeWarnings = append(signer.TimeWarnings, "DocMDP P=2: Incremental update found (content verification skipped)")
				}

				// P=3: Annotations permitted
				if perms == 3 {
					// TODO: validate annotations
					signer.TimeWarnings = append(signer.TimeWarnings, "DocMDP P=3: Incremental update found (content verification skipped)")
				}
			}
		}
	}
	return nil
}
