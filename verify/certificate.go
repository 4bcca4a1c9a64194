package verify

import (
	"crypto/x509"
	"fmt"
	"time"

	"github.com/digitorus/timestamp"
	"github.com/govbr-pades/pades/chain"
	"github.com/govbr-pades/pades/cms"
	"github.com/govbr-pades/pades/revocation"
	"golang.org/x/crypto/ocsp"
)

// buildCertificateChainsWithOptions builds certificate chains with custom verification options
func buildCertificateChainsWithOptions(sd *cms.SignedData, signer *Signer, revInfo revocation.InfoArchival, options *VerifyOptions) (string, error) {
	// Determine the verification time and set up time tracking fields
	var verificationTime *time.Time

	// Initialize time tracking fields
	signer.TimeSource = "current_time"
	signer.TimeWarnings = []string{}
	signer.TimestampStatus = "missing"
	signer.TimestampTrusted = false

	// Always prioritize embedded timestamp if present
	if signer.TimeStamp != nil && !signer.TimeStamp.Time.IsZero() {
		verificationTime = &signer.TimeStamp.Time
		signer.TimeSource = "embedded_timestamp"
		signer.TimestampStatus = "valid"

		// Validate timestamp certificate if enabled
		if options.ValidateTimestampCertificates {
			timestampTrusted, timestampWarning := validateTimestampCertificate(signer.TimeStamp, options)
			signer.TimestampTrusted = timestampTrusted
			if timestampWarning != "" {
				signer.TimeWarnings = append(signer.TimeWarnings, timestampWarning)
			}
		}
	} else if options.TrustSignatureTime && signer.SignatureTime != nil {
		// Use signature time as fallback with warning about its untrusted nature
		verificationTime = signer.SignatureTime
		signer.TimeSource = "signature_time"
		signer.TimeWarnings = append(signer.TimeWarnings,
			"Using signature time as fallback - this time is provided by the signatory and should be considered untrusted")
	} else if !options.AtTime.IsZero() {
		// Caller pinned an explicit verification time (e.g. LTV replay against
		// an archived DSS at the moment the signature was originally validated).
		t := options.AtTime
		verificationTime = &t
		signer.TimeSource = "explicit"
	}
	// If verificationTime is nil, chain.VerifyAt uses time.Now() (default behavior)

	// Set the verification time used
	now := time.Now()
	if verificationTime != nil {
		signer.VerificationTime = verificationTime
	} else {
		signer.VerificationTime = &now
	}
	effectiveTime := now
	if verificationTime != nil {
		effectiveTime = *verificationTime
	}

	// Parse OCSP response
	ocspStatus := make(map[string]*ocsp.Response)
	var ocspParseErrors []string
	for _, o := range revInfo.OCSP {
		resp, err := ocsp.ParseResponse(o.FullBytes, nil)
		if err != nil {
			// Continue processing other OCSP responses instead of failing entirely
			// We can't get the serial number if parsing failed, so we can't store it
			// But we should track the error for reporting
			ocspParseErrors = append(ocspParseErrors, fmt.Sprintf("Failed to parse OCSP response: %v", err))
			continue
		} else {
			ocspStatus[fmt.Sprintf("%x", resp.SerialNumber)] = resp
		}
	}

	// Parse CRL responses
	crlStatus := make(map[string]*time.Time) // map[serial]revocationTime (nil means not revoked)
	var crlParseErrors []string
	for _, c := range revInfo.CRL {
		crl, err := x509.ParseRevocationList(c.FullBytes)
		if err != nil {
			crlParseErrors = append(crlParseErrors, fmt.Sprintf("Failed to parse CRL: %v", err))
			continue
		}

		// Check all revoked certificates in this CRL
		for _, revokedCert := range crl.RevokedCertificateEntries {
			serialStr := fmt.Sprintf("%x", revokedCert.SerialNumber)
			crlStatus[serialStr] = &revokedCert.RevocationTime
		}
	}

	// Build certificate chains and verify revocation status
	var errorMsg string
	trustedIssuer := false

	// If we had parsing errors, include them in the error message
	var parseErrors []string
	parseErrors = append(parseErrors, ocspParseErrors...)
	parseErrors = append(parseErrors, crlParseErrors...)

	if len(parseErrors) > 0 {
		if len(parseErrors) == 1 {
			errorMsg = parseErrors[0]
		} else {
			errorMsg = fmt.Sprintf("Multiple parsing errors: %v", parseErrors)
		}
	}

	for _, cert := range sd.Certificates {
		var c Certificate
		c.Certificate = cert

		// Validate Key Usage and Extended Key Usage for PDF signing
		c.KeyUsageValid, c.KeyUsageError, c.ExtKeyUsageValid, c.ExtKeyUsageError = validateKeyUsage(cert, options)

		path, trusted, verifyErr := buildTrustedPath(cert, sd.Certificates, effectiveTime, options)
		if verifyErr != nil {
			c.VerifyError = verifyErr.Error()
		} else if trusted {
			trustedIssuer = true
		}
		// Note: trustedIssuer remains false when the path only validated
		// structurally (AllowUntrustedRoots) rather than against a trust anchor.

		if resp, ok := ocspStatus[fmt.Sprintf("%x", cert.SerialNumber)]; ok {
			c.OCSPResponse = resp
			c.OCSPEmbedded = true

			if resp.Status != ocsp.Good {
				c.RevocationTime = &resp.RevokedAt
				// Check if revocation occurred before signing
				revokedBeforeSigning := isRevokedBeforeSigning(resp.RevokedAt, signer.VerificationTime, signer.TimeSource)
				c.RevokedBeforeSigning = revokedBeforeSigning

				if revokedBeforeSigning {
					signer.RevokedCertificate = true
				} else {
					// Add warning that certificate was revoked after signing
					if signer.TimeSource == "embedded_timestamp" {
						signer.TimeWarnings = append(signer.TimeWarnings,
							fmt.Sprintf("Certificate was revoked after signing time (revoked: %v, signed: %v)",
								resp.RevokedAt, signer.VerificationTime))
					} else {
						// Without trusted timestamp, we must assume revocation invalidates signature
						signer.RevokedCertificate = true
						signer.TimeWarnings = append(signer.TimeWarnings,
							"Certificate revoked, but cannot determine if revocation occurred before or after signing without trusted timestamp")
					}
				}
			}

			if len(path) > 1 {
				issuer := path[1]
				if resp.Certificate != nil {
					err := resp.Certificate.CheckSignatureFrom(issuer)
					if err != nil {
						errorMsg = fmt.Sprintf("OCSP signing certificate not from certificate issuer: %v", err)
					}
				} else {
					// CA Signed response
					err := resp.CheckSignatureFrom(issuer)
					if err != nil {
						errorMsg = fmt.Sprintf("Failed to verify OCSP response signature: %v", err)
					}
				}
			}
		}

		// Check CRL status
		serialStr := fmt.Sprintf("%x", cert.SerialNumber)
		if revocationTime, ok := crlStatus[serialStr]; ok && revocationTime != nil {
			c.CRLEmbedded = true
			c.RevocationTime = revocationTime

			// Check if revocation occurred before signing
			revokedBeforeSigning := isRevokedBeforeSigning(*revocationTime, signer.VerificationTime, signer.TimeSource)
			c.RevokedBeforeSigning = revokedBeforeSigning

			if revokedBeforeSigning {
				signer.RevokedCertificate = true
			} else {
				// Add warning that certificate was revoked after signing
				if signer.TimeSource == "embedded_timestamp" {
					signer.TimeWarnings = append(signer.TimeWarnings,
						fmt.Sprintf("Certificate was revoked after signing time (revoked: %v, signed: %v)",
							revocationTime, signer.VerificationTime))
				} else {
					// Without trusted timestamp, we must assume revocation invalidates signature
					signer.RevokedCertificate = true
					signer.TimeWarnings = append(signer.TimeWarnings,
						"Certificate revoked, but cannot determine if revocation occurred before or after signing without trusted timestamp")
				}
			}
		} else if len(revInfo.CRL) > 0 {
			// CRL is embedded but this certificate is not in it (so it's not revoked via CRL)
			c.CRLEmbedded = true
		}

		// Perform external revocation checks if enabled
		if options.EnableExternalRevocationCheck {
			// External OCSP check
			if !c.OCSPEmbedded && len(cert.OCSPServer) > 0 && len(path) > 1 {
				issuer := path[1]
				if externalOCSPResp, err := performExternalOCSPCheck(cert, issuer, options); err == nil {
					c.OCSPResponse = externalOCSPResp
					c.OCSPExternal = true

					if externalOCSPResp.Status != ocsp.Good {
						c.RevocationTime = &externalOCSPResp.RevokedAt
						// Check if revocation occurred before signing
						revokedBeforeSigning := isRevokedBeforeSigning(externalOCSPResp.RevokedAt, signer.VerificationTime, signer.TimeSource)
						c.RevokedBeforeSigning = revokedBeforeSigning

						if revokedBeforeSigning {
							signer.RevokedCertificate = true
						} else {
							// Add warning that certificate was revoked after signing
							if signer.TimeSource == "embedded_timestamp" {
								signer.TimeWarnings = append(signer.TimeWarnings,
									fmt.Sprintf("Certificate was revoked after signing time (external OCSP - revoked: %v, signed: %v)",
										externalOCSPResp.RevokedAt, signer.VerificationTime))
							} else {
								// Without trusted timestamp, we must assume revocation invalidates signature
								signer.RevokedCertificate = true
								signer.TimeWarnings = append(signer.TimeWarnings,
									"Certificate revoked (external OCSP), but cannot determine if revocation occurred before or after signing without trusted timestamp")
							}
						}
					}
				}
			}

			// External CRL check
			if !c.CRLEmbedded && len(cert.CRLDistributionPoints) > 0 {
				if revocationTime, isRevoked, err := performExternalCRLCheck(cert, options); err == nil {
					c.CRLExternal = true
					if isRevoked {
						c.RevocationTime = revocationTime
						// Check if revocation occurred before signing
						revokedBeforeSigning := isRevokedBeforeSigning(*revocationTime, signer.VerificationTime, signer.TimeSource)
						c.RevokedBeforeSigning = revokedBeforeSigning

						if revokedBeforeSigning {
							signer.RevokedCertificate = true
						} else {
							// Add warning that certificate was revoked after signing
							if signer.TimeSource == "embedded_timestamp" {
								signer.TimeWarnings = append(signer.TimeWarnings,
									fmt.Sprintf("Certificate was revoked after signing time (external CRL - revoked: %v, signed: %v)",
										revocationTime, signer.VerificationTime))
							} else {
								// Without trusted timestamp, we must assume revocation invalidates signature
								signer.RevokedCertificate = true
								signer.TimeWarnings = append(signer.TimeWarnings,
									"Certificate revoked (external CRL), but cannot determine if revocation occurred before or after signing without trusted timestamp")
							}
						}
					}
				}
			}
		}

		// Generate revocation warnings
		hasOCSP := c.OCSPEmbedded || c.OCSPExternal
		hasCRL := c.CRLEmbedded || c.CRLExternal
		hasRevocationInfo := hasOCSP || hasCRL

		// Check if certificate has revocation distribution points
		hasOCSPUrl := len(cert.OCSPServer) > 0
		hasCRLUrl := len(cert.CRLDistributionPoints) > 0
		canCheckExternally := hasOCSPUrl || hasCRLUrl

		if !hasRevocationInfo {
			if canCheckExternally {
				if options.EnableExternalRevocationCheck {
					c.RevocationWarning = "External revocation checking enabled but failed to retrieve status from distribution points."
				} else {
					c.RevocationWarning = "No embedded revocation status found. Certificate has distribution points but external checking is not enabled."
				}
			} else {
				c.RevocationWarning = "No revocation status available. Certificate has no embedded OCSP/CRL and no distribution points for external checking."
			}
		} else if !hasOCSP && hasOCSPUrl {
			if options.EnableExternalRevocationCheck {
				c.RevocationWarning = "No OCSP response found despite external checking being enabled."
			} else {
				c.RevocationWarning = "No embedded OCSP response found, but certificate has OCSP URL for external checking."
			}
		} else if !hasCRL && hasCRLUrl {
			warningMsg := ""
			if options.EnableExternalRevocationCheck {
				warningMsg = "No CRL status found despite external checking being enabled."
			} else {
				warningMsg = "No embedded CRL found, but certificate has CRL distribution points for external checking."
			}

			if c.RevocationWarning != "" {
				c.RevocationWarning += " " + warningMsg
			} else {
				c.RevocationWarning = warningMsg
			}
		}

		// Add certificate to result
		signer.Certificates = append(signer.Certificates, c)
	}

	// Set trusted issuer flag based on whether any certificate was verified against system roots
	signer.TrustedIssuer = trustedIssuer

	return errorMsg, nil
}

// buildTrustedPath builds an explicit leaf-to-root path for cert out of
// candidates and checks it structurally (signature linkage, validity
// windows, CA constraints) via the chain package, preferred per spec over
// crypto/x509.Certificate.Verify's implicit graph search. It reports
// whether the path's root is a trust anchor by handing that single
// certificate to x509.Verify: a self-signed certificate already present in
// options.TrustedRoots (or, when nil, the system pool) verifies against
// itself trivially, which is the only portion of x509.Verify's behavior
// this package still relies on, since crypto/x509.CertPool exposes no way
// to enumerate its members directly.
func buildTrustedPath(cert *x509.Certificate, candidates []*x509.Certificate, at time.Time, options *VerifyOptions) (chain.Path, bool, error) {
	path, err := chain.BuildPath(cert, candidates, nil)
	if err != nil {
		return nil, false, err
	}
	if err := chain.VerifyAt(path, at, chain.Options{}); err != nil {
		return nil, false, err
	}

	root := path.Root()
	_, rootErr := root.Verify(x509.VerifyOptions{
		Roots:       options.TrustedRoots,
		CurrentTime: at,
		KeyUsages:   getVerificationEKUs(),
	})
	if rootErr == nil {
		return path, true, nil
	}
	if options.AllowUntrustedRoots {
		return path, false, nil
	}
	return nil, false, fmt.Errorf("certificate chain does not terminate in a trusted root: %w", rootErr)
}

// validateTimestampCertificate validates the timestamp token's signing certificate
func validateTimestampCertificate(ts *timestamp.Timestamp, options *VerifyOptions) (bool, string) {
	if ts == nil {
		return false, "No timestamp to validate"
	}

	// Parse the timestamp token to get its CMS SignedData structure.
	sd, err := cms.ParseSignedData(ts.RawToken)
	if err != nil {
		return false, fmt.Sprintf("Failed to parse timestamp token: %v", err)
	}

	// Find the timestamp signing certificate.
	var timestampCert *x509.Certificate
	for _, cert := range sd.Certificates {
		if cert.KeyUsage&x509.KeyUsageDigitalSignature != 0 {
			timestampCert = cert
			break
		}
	}
	if timestampCert == nil {
		return false, "No timestamp signing certificate found"
	}

	path, err := chain.BuildPath(timestampCert, sd.Certificates, nil)
	if err != nil {
		return false, fmt.Sprintf("Timestamp certificate chain validation failed: %v", err)
	}
	if err := chain.VerifyAt(path, ts.Time, chain.Options{}); err != nil {
		return false, fmt.Sprintf("Timestamp certificate chain validation failed: %v", err)
	}

	root := path.Root()
	_, rootErr := root.Verify(x509.VerifyOptions{
		CurrentTime: ts.Time,
		KeyUsages:   []x509.ExtKeyUsage{x509.ExtKeyUsageTimeStamping},
	})
	if rootErr == nil {
		return true, ""
	}
	if options.AllowUntrustedRoots {
		return true, "Timestamp certificate validated using embedded certificates (not system trusted)"
	}
	return false, fmt.Sprintf("Timestamp certificate chain validation failed: %v", rootErr)
}

// isRevokedBeforeSigning determines if a certificate was revoked before the signing time
func isRevokedBeforeSigning(revocationTime time.Time, signingTime *time.Time, timeSource string) bool {
	// If we don't have a reliable signing time, we must assume revocation invalidates the signature
	if signingTime == nil || timeSource == "current_time" {
		return true
	}

	// If we only have signature time (untrusted), we should be conservative
	if timeSource == "signature_time" {
		return true
	}

	// For embedded timestamps (trusted), we can make a proper determination
	if timeSource == "embedded_timestamp" {
		return revocationTime.Before(*signingTime)
	}

	// Default to conservative behavior
	return true
}
