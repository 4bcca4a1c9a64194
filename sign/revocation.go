package sign

import (
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/govbr-pades/pades/revocation"

	"golang.org/x/crypto/ocsp"
)

func embedOCSPRevocationStatus(cert, issuer *x509.Certificate, i *revocation.InfoArchival) error {
	req, err := ocsp.CreateRequest(cert, issuer, nil)
	if err != nil {
		return err
	}

	ocspUrl := fmt.Sprintf("%s/%s", strings.TrimRight(cert.OCSPServer[0], "/"),
		base64.StdEncoding.EncodeToString(req))
	resp, err := http.Get(ocspUrl)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	// check if we got a valid OCSP response
	_, err = ocsp.ParseResponseForCert(body, cert, issuer)
	if err != nil {
		return err
	}

	i.AddOCSP(body)
	return nil
}

// embedCRLRevocationStatus requires an issuer as it needs to implement the
// the interface, a nil argment might be given if the issuer is not known.
func embedCRLRevocationStatus(cert, issuer *x509.Certificate, i *revocation.InfoArchival) error {
	resp, err := http.Get(cert.CRLDistributionPoints[0])
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	// TODO: verify crl and certificate before embedding
	i.AddCRL(body)
	return nil
}

// FetchCertificateRevocation retrieves CRL and/or OCSP revocation evidence
// for cert (issued by issuer, which may be nil if unknown) from the
// distribution points embedded in the certificate itself. Unlike
// embedRevocationStatus, which stops once one form of evidence has been
// embedded in a signature, this collects everything available so LTV
// enablement can archive the fullest validation chain in the document's
// /DSS. A failure to reach one source does not prevent trying the other.
func FetchCertificateRevocation(cert, issuer *x509.Certificate) (crls [][]byte, ocsps [][]byte) {
	if len(cert.OCSPServer) > 0 && issuer != nil {
		var archival revocation.InfoArchival
		if err := embedOCSPRevocationStatus(cert, issuer, &archival); err == nil {
			for _, o := range archival.OCSP {
				ocsps = append(ocsps, o.FullBytes)
			}
		}
	}

	if len(cert.CRLDistributionPoints) > 0 {
		var archival revocation.InfoArchival
		if err := embedCRLRevocationStatus(cert, issuer, &archival); err == nil {
			for _, c := range archival.CRL {
				crls = append(crls, c.FullBytes)
			}
		}
	}

	return crls, ocsps
}

func embedRevocationStatus(cert, issuer *x509.Certificate, i *revocation.InfoArchival) error {
	// For each certificate a revoction status needs to be included, this can be done
	// by embedding a CRL or OCSP response. In most cases an OCSP response is smaller
	// to embed in the document but and empty CRL (often seen of dediced high volume
	// hirachies) can be smaller.
	//
	// There have been some reports that the usage of a CRL would result in a better
	// compatibilty.
	//
	// TODO: Find and embed link about compatibilty
	// TODO: Implement revocation status caching (required for higher volume signing)

	// using an OCSP server
	if len(cert.OCSPServer) > 0 {
		embedOCSPRevocationStatus(cert, issuer, i)
		return nil
	}

	// using a crl
	if len(cert.CRLDistributionPoints) > 0 {
		embedCRLRevocationStatus(cert, issuer, i)
		return nil
	}

	return errors.New("certificate contains no information to check status")
}
