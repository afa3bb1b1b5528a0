package rust

import (
	"github.com/syssam/smithygen/compiler/gen"
	"github.com/syssam/smithygen/compiler/load"
)

// S3 is the service that reports errors as unwrapped XML.
const S3 load.ShapeID = "com.amazonaws.s3#AmazonS3"

// protocol is the default strategy of one protocol. It implements every
// capability the dialect generates.
type protocol struct {
	name        string
	errorParser string
	contentType string
}

var (
	_ gen.ErrorMetadataParser = protocol{}
	_ gen.PayloadCodec        = protocol{}
)

// Name implements gen.Strategy.
func (p protocol) Name() string { return p.name }

// ParseFunction implements gen.ErrorMetadataParser.
func (p protocol) ParseFunction(*gen.Context, gen.Symbol) string { return p.errorParser }

// ContentType implements gen.PayloadCodec.
func (p protocol) ContentType() string { return p.contentType }

var protocols = map[gen.ProtocolID]protocol{
	gen.ProtocolRestJSON1: {
		name:        "rest-json",
		errorParser: "crate::json_errors::parse_error_metadata",
		contentType: "application/json",
	},
	gen.ProtocolAWSJSON10: {
		name:        "aws-json-1.0",
		errorParser: "crate::json_errors::parse_error_metadata",
		contentType: "application/x-amz-json-1.0",
	},
	gen.ProtocolAWSJSON11: {
		name:        "aws-json-1.1",
		errorParser: "crate::json_errors::parse_error_metadata",
		contentType: "application/x-amz-json-1.1",
	},
	gen.ProtocolRestXML: {
		name:        "rest-xml",
		errorParser: "crate::rest_xml_wrapped_errors::parse_error_metadata",
		contentType: "application/xml",
	},
	gen.ProtocolAWSQuery: {
		name:        "aws-query",
		errorParser: "crate::aws_query_errors::parse_error_metadata",
		contentType: "application/x-www-form-urlencoded",
	},
	gen.ProtocolEC2Query: {
		name:        "ec2-query",
		errorParser: "crate::ec2_query_errors::parse_error_metadata",
		contentType: "application/x-www-form-urlencoded",
	},
	gen.ProtocolRPCv2CBOR: {
		name:        "rpcv2-cbor",
		errorParser: "crate::cbor_errors::parse_error_metadata",
		contentType: "application/cbor",
	},
}

// unwrappedXMLErrors parses S3 errors, which are not wrapped in an
// <ErrorResponse> element.
var unwrappedXMLErrors = protocol{
	name:        "rest-xml-unwrapped-errors",
	errorParser: "crate::rest_xml_unwrapped_errors::parse_error_metadata",
	contentType: "application/xml",
}

// RegisterProtocols registers the default strategies of every protocol and
// the S3 error override for SDK crates.
func (d *Dialect) RegisterProtocols(flavor gen.Flavor, service *load.Shape, r *gen.ProtocolRegistry) error {
	for _, id := range gen.ProtocolPriority {
		p := protocols[id]
		for _, c := range []gen.Capability{gen.CapabilityErrorMetadataParser, gen.CapabilityPayloadCodec} {
			if err := r.RegisterDefault(id, c, p); err != nil {
				return err
			}
		}
	}
	if flavor == gen.FlavorSDK && service != nil && service.ID == S3 {
		return r.Register(gen.ProtocolRestXML, gen.CapabilityErrorMetadataParser, unwrappedXMLErrors)
	}
	return nil
}
