// Package location resolves geolocation coordinates for catalog assets from
// the external asset provider. The Provider interface is the seam the
// migration engine depends on; the HTTP implementation talks JSON to the
// provider API and maps its failures onto the shared error taxonomy.
package location
